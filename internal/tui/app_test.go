package tui

import (
	"strings"
	"testing"

	"docassist/internal/app"
)

func testModel(t *testing.T) *MainModel {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	application, err := app.NewApplication(app.DefaultConfig(), true)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(application.Shutdown)
	return NewMainModel(application)
}

func TestComputeLayout_SidebarHiddenWhenNarrow(t *testing.T) {
	m := testModel(t)

	m.width, m.height = 80, 24
	if l := m.computeLayout(); l.SidebarW != 0 || l.ChatW != 80 {
		t.Fatalf("narrow layout should drop the sidebar: %+v", l)
	}

	m.width = 120
	l := m.computeLayout()
	if l.SidebarW == 0 {
		t.Fatal("wide layout should show the sidebar")
	}
	if l.SidebarW+1+l.ChatW != 120 {
		t.Fatalf("panes must fill the width exactly: %+v", l)
	}
}

func TestComputeLayout_UploadPanelReservesHeight(t *testing.T) {
	m := testModel(t)
	m.width, m.height = 120, 30

	base := m.computeLayout()
	m.batch = app.NewUploadBatch([]string{"a.pdf", "b.pdf"})
	withPanel := m.computeLayout()

	if withPanel.UploadH == 0 {
		t.Fatal("panel height missing while a batch exists")
	}
	if withPanel.MainH >= base.MainH {
		t.Fatalf("chat area must shrink for the panel: %d -> %d", base.MainH, withPanel.MainH)
	}
}

func TestRenderBar_FillProportion(t *testing.T) {
	m := testModel(t)

	cases := []struct {
		percent float64
		filled  int
	}{
		{0, 0},
		{50, 5},
		{100, 10},
		{250, 10}, // clamped
	}
	for _, tc := range cases {
		bar := m.renderBar(tc.percent, 10)
		if got := strings.Count(bar, "█"); got != tc.filled {
			t.Fatalf("%.0f%%: expected %d filled cells, got %d", tc.percent, tc.filled, got)
		}
		if got := strings.Count(bar, "░"); got != 10-tc.filled {
			t.Fatalf("%.0f%%: expected %d track cells, got %d", tc.percent, 10-tc.filled, got)
		}
	}
}

func TestRenderUploadRow_Statuses(t *testing.T) {
	m := testModel(t)

	row := m.renderUploadRow(app.UploadFile{Name: "notes.txt", Status: app.FileError, Error: "only PDF files are supported"}, 60)
	if !strings.Contains(row, "only PDF files are supported") {
		t.Fatalf("error row must carry the reason: %q", row)
	}

	row = m.renderUploadRow(app.UploadFile{Name: "a.pdf", Status: app.FileCompleted, Progress: 100}, 60)
	if !strings.Contains(row, "done") {
		t.Fatalf("completed row missing marker: %q", row)
	}

	row = m.renderUploadRow(app.UploadFile{Name: "b.pdf", Status: app.FileProcessing, Progress: 40}, 60)
	if !strings.Contains(row, "40%") {
		t.Fatalf("processing row missing percent: %q", row)
	}
}

func TestHelpFullView_ListsSlashCommands(t *testing.T) {
	h := newHelpModel()
	view := h.FullView()
	for _, want := range []string{"/upload", "/clear-docs", "/help", "ctrl+n"} {
		if !strings.Contains(view, want) {
			t.Fatalf("help view missing %q", want)
		}
	}
}

func TestDeleteFailureText(t *testing.T) {
	if got := deleteFailureText(app.ErrLastSession); got != "cannot delete the last session" {
		t.Fatalf("unexpected text: %q", got)
	}
}
