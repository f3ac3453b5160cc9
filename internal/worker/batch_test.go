package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/verbatim/internal/model"
)

// mockProcessor rejects texts starting with "invalid"
type mockProcessor struct {
	mu      sync.Mutex
	counter int
}

func (m *mockProcessor) Submit(ctx context.Context, text string) (*model.Submission, error) {
	if strings.HasPrefix(text, "invalid") {
		return nil, errors.New("text too short")
	}
	m.mu.Lock()
	m.counter++
	id := fmt.Sprintf("sub-%d", m.counter)
	m.mu.Unlock()
	return model.NewSubmission(id, text, time.Now()), nil
}

func (m *mockProcessor) Process(ctx context.Context, id string) (*model.Results, error) {
	time.Sleep(5 * time.Millisecond)
	return &model.Results{SubmissionID: id, Status: model.StatusCompleted}, nil
}

type failingProcessor struct{ mockProcessor }

func (f *failingProcessor) Process(ctx context.Context, id string) (*model.Results, error) {
	return nil, errors.New("stage S1 failed")
}

func TestBatchProcessor_ProcessTexts(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{}, 3)

	inputs := []Input{
		{Name: "a.txt", Text: "first text"},
		{Name: "b.txt", Text: "invalid"},
		{Name: "c.txt", Text: "third text"},
		{Name: "d.txt", Text: "fourth text"},
	}
	results := bp.ProcessTexts(context.Background(), inputs)

	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, r := range results {
		if r.Name != inputs[i].Name {
			t.Errorf("result %d: expected name %s, got %s", i, inputs[i].Name, r.Name)
		}
	}

	if results[1].Error == nil {
		t.Error("expected submit error for invalid text")
	}
	if results[1].SubmissionID != "" {
		t.Errorf("expected no submission id on submit failure, got %s", results[1].SubmissionID)
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Error != nil {
			t.Errorf("result %d: unexpected error %v", i, results[i].Error)
		}
		if results[i].Results == nil || results[i].Results.SubmissionID != results[i].SubmissionID {
			t.Errorf("result %d: expected results for %s", i, results[i].SubmissionID)
		}
	}
}

func TestBatchProcessor_ProcessError(t *testing.T) {
	bp := NewBatchProcessor(&failingProcessor{}, 2)
	results := bp.ProcessTexts(context.Background(), []Input{{Name: "x", Text: "some text"}})

	if results[0].GetError() == nil {
		t.Fatal("expected error")
	}
	if results[0].SubmissionID == "" {
		t.Error("expected submission id to be recorded before the failure")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	bp := NewBatchProcessor(&mockProcessor{}, 2)
	if got := bp.ProcessTexts(context.Background(), nil); len(got) != 0 {
		t.Errorf("expected empty results, got %d", len(got))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bp := NewBatchProcessor(&mockProcessor{}, 1)
	results := bp.ProcessTexts(ctx, []Input{{Name: "a", Text: "t"}, {Name: "b", Text: "t"}})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r == nil {
			t.Fatal("expected a result for every input")
		}
	}
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.txt")
	content := "# inputs\n\ndocs/a.txt\nhttps://example.com/page\n  docs/a.txt  \n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList failed: %v", err)
	}
	want := []string{"docs/a.txt", "https://example.com/page"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestReadList_NonExistent(t *testing.T) {
	if _, err := ReadList("/nonexistent/list.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}
