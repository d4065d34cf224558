package ingestion

import (
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	added   []DocumentEvent
	removed []int
	mode    indexer.Mode
}

func (r *recordingTarget) AddDocument(id int, text string, status store.Status, ratings []int) error {
	r.added = append(r.added, DocumentEvent{Op: OpAdd, ID: id, Text: text, Status: status.String(), Ratings: ratings})
	return nil
}

func (r *recordingTarget) RemoveDocument(mode indexer.Mode, id int) error {
	r.mode = mode
	r.removed = append(r.removed, id)
	return nil
}

func TestParseLine(t *testing.T) {
	ev, err := ParseLine("7\tbanned\t5, -3,1\tfunny pet\twith tab\r\n")
	require.NoError(t, err)
	assert.Equal(t, DocumentEvent{
		Op:      OpAdd,
		ID:      7,
		Status:  "banned",
		Ratings: []int{5, -3, 1},
		Text:    "funny pet\twith tab",
	}, ev)

	ev, err = ParseLine("0\t\t\tcat")
	require.NoError(t, err)
	assert.Nil(t, ev.Ratings)
	assert.Equal(t, "cat", ev.Text)
}

func TestParseLineRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "1\tactual\tcat"},
		{"bad id", "x\tactual\t\tcat"},
		{"bad rating", "1\tactual\t4,five\tcat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
		})
	}
}

func TestFormatLineRoundTrip(t *testing.T) {
	ev := DocumentEvent{Op: OpAdd, ID: 3, Status: "irrelevant", Ratings: []int{1, 2}, Text: "white cat"}
	got, err := ParseLine(FormatLine(ev))
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	assert.Equal(t, "4\tactual\t\tdog", FormatLine(DocumentEvent{ID: 4, Text: "dog"}))
}

func TestApply(t *testing.T) {
	target := &recordingTarget{}
	require.NoError(t, Apply(target, indexer.ModeParallel, DocumentEvent{ID: 1, Text: "cat", Status: "active"}))
	require.NoError(t, Apply(target, indexer.ModeParallel, DocumentEvent{Op: OpRemove, ID: 1}))

	require.Len(t, target.added, 1)
	assert.Equal(t, "actual", target.added[0].Status)
	assert.Equal(t, []int{1}, target.removed)
	assert.Equal(t, indexer.ModeParallel, target.mode)

	err := Apply(target, indexer.ModeSequential, DocumentEvent{ID: 2, Status: "hidden"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
	err = Apply(target, indexer.ModeSequential, DocumentEvent{Op: "update", ID: 2})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
}
