package tui_test

import (
	"bytes"
	"testing"

	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/tui"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultMarkdown(t *testing.T) {
	result := domain.CalculationResult{
		"n2": domain.Record{"c": 30, "d": 0},
		"n1": domain.Record{"d": 5, "c": 15},
		"n3": domain.Record{},
		"p|": domain.Record{"x": "a|b"},
	}

	got := tui.ResultMarkdown("fixture", result)
	assert.Equal(t, "# fixture\n\n"+
		"| Node | Output | Value |\n|---|---|---|\n"+
		"| n1 | c | 15 |\n"+
		"| n1 | d | 5 |\n"+
		"| n2 | c | 30 |\n"+
		"| n2 | d | 0 |\n"+
		"| n3 | | |\n"+
		"| p\\| | x | a\\|b |\n", got)

	assert.Contains(t, tui.ResultMarkdown("empty", nil), "No nodes were calculated")
}

func TestRenderResult_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.RenderResult(&buf, "g", domain.CalculationResult{"n": {"v": 1}}))
	assert.Equal(t, tui.ResultMarkdown("g", domain.CalculationResult{"n": {"v": 1}}), buf.String())
	assert.False(t, tui.IsTerminal(&buf))
}

func TestNewRenderer(t *testing.T) {
	out, err := tui.NewRenderer(80)("# Title")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_| |_|")
}
