package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBar_Defaults(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.ResultCount())
	assert.Contains(t, bar.View(), "Ready")
	assert.Contains(t, bar.View(), "lexical")
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(b *Bar)
		contains []string
	}{
		{
			name:     "searching",
			setup:    func(b *Bar) { b.SetState(StateSearching) },
			contains: []string{"Searching..."},
		},
		{
			name: "error with message",
			setup: func(b *Bar) {
				b.SetState(StateError)
				b.SetMessage("index locked")
			},
			contains: []string{"Error: index locked"},
		},
		{
			name: "single result",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetResultCount(1)
			},
			contains: []string{"1 result", "details"},
		},
		{
			name: "many results",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetResultCount(12)
			},
			contains: []string{"12 results"},
		},
		{
			name:     "semantic mode",
			setup:    func(b *Bar) { b.SetSemantic(true) },
			contains: []string{"semantic"},
		},
		{
			name:     "ready with message",
			setup:    func(b *Bar) { b.SetMessage("Opening...") },
			contains: []string{"Opening..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			tt.setup(bar)

			view := bar.View()
			for _, want := range tt.contains {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetResultCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.ResultCount())
}
