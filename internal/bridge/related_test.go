package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	others map[string][]string
	err    error
	asked  []string
}

func (f *fakeIndex) Others(_ context.Context, name string) ([]string, error) {
	f.asked = append(f.asked, name)
	return f.others[name], f.err
}

type fakePicker struct {
	choice string
	ok     bool
	items  []string
}

func (f *fakePicker) Pick(_ context.Context, items []string) (string, bool, error) {
	f.items = items
	return f.choice, f.ok, nil
}

type fakeViewer struct {
	shown []string
}

func (f *fakeViewer) Show(_ context.Context, name string) error {
	f.shown = append(f.shown, name)
	return nil
}

func TestRelatedViews(t *testing.T) {
	index := &fakeIndex{others: map[string][]string{
		"Demo.Order.bpl": {"Demo.Order.cls"},
		"Demo.Multi.cls": {"Demo.Multi.bpl", "Demo.Multi.Context.cls"},
	}}

	tests := []struct {
		name      string
		doc       string
		picker    *fakePicker
		want      string
		wantShown []string
	}{
		{"none", "Lonely.cls", nil, "", nil},
		{"single opens directly", "Demo.Order.bpl", nil, "Demo.Order.cls", []string{"Demo.Order.cls"}},
		{"several go through picker", "Demo.Multi.cls", &fakePicker{choice: "Demo.Multi.bpl", ok: true}, "Demo.Multi.bpl", []string{"Demo.Multi.bpl"}},
		{"picker dismissed", "Demo.Multi.cls", &fakePicker{}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viewer := &fakeViewer{}
			r := &RelatedViews{Index: index, Viewer: viewer}
			if tt.picker != nil {
				r.Picker = tt.picker
			}

			got, err := r.Open(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantShown, viewer.shown)
			if tt.picker != nil {
				assert.Len(t, tt.picker.items, 2)
			}
		})
	}
}

func TestRelatedViewsFallsBackToActiveSession(t *testing.T) {
	reg := NewRegistry()
	s := testSession("Demo.Order.cls", "Demo.Order.bpl")
	reg.Register(s)

	index := &fakeIndex{others: map[string][]string{"Demo.Order.bpl": {"Demo.Order.cls"}}}
	viewer := &fakeViewer{}
	r := &RelatedViews{Index: index, Viewer: viewer, Registry: reg}

	got, err := r.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", got, "no active session, nothing to do")
	assert.Empty(t, index.asked)

	reg.SetActive(s)
	got, err = r.Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Demo.Order.cls", got)
	assert.Equal(t, []string{"Demo.Order.bpl"}, index.asked)
}

func TestRelatedViewsErrors(t *testing.T) {
	boom := errors.New("index unavailable")
	r := &RelatedViews{Index: &fakeIndex{err: boom}, Viewer: &fakeViewer{}}
	_, err := r.Open(context.Background(), "X.cls")
	assert.ErrorIs(t, err, boom)

	r = &RelatedViews{
		Index:  &fakeIndex{others: map[string][]string{"X.cls": {"a", "b"}}},
		Viewer: &fakeViewer{},
	}
	_, err = r.Open(context.Background(), "X.cls")
	assert.Error(t, err, "several related documents need a picker")
}
