package format

import "testing"

func TestDetectExtensionIsAuthoritative(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		sample   string
		want     Format
	}{
		{name: "zip", filename: "backup.zip", want: NativeArchive},
		{name: "taskpaper", filename: "inbox.taskpaper", want: TaskPaper},
		{name: "csv", filename: "tasks.csv", want: CSV},
		{name: "tsv", filename: "tasks.tsv", want: TSV},
		{name: "tab", filename: "tasks.tab", want: TSV},
		{name: "json regardless of content", filename: "tasks.json", sample: "- [ ] buy milk", want: JSON},
		{name: "uppercase extension", filename: "TASKS.CSV", want: CSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.filename, []byte(tt.sample))
			if !ok || got != tt.want {
				t.Errorf("Detect(%q) = (%v, %v), want %v", tt.filename, got, ok, tt.want)
			}
		})
	}
}

func TestDetectContentSniffing(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   Format
		wantOK bool
	}{
		{
			name:   "json object",
			sample: `{"tasks": []}`,
			want:   JSON, wantOK: true,
		},
		{
			name:   "json array with leading whitespace",
			sample: "\n  [{\"title\": \"x\"}]",
			want:   JSON, wantOK: true,
		},
		{
			name:   "frontmatter",
			sample: "---\ntitle: Buy milk\n---\n",
			want:   MarkdownDoc, wantOK: true,
		},
		{
			name:   "tag density",
			sample: "Work:\n\tCall John @phone @due(2025-11-20)\n\tShip build @done\n\tReview PR @flagged",
			want:   TaskPaper, wantOK: true,
		},
		{
			name:   "csv header",
			sample: "Title,Status,Due\nBuy milk,inbox,2025-11-20",
			want:   CSV, wantOK: true,
		},
		{
			name:   "tsv header",
			sample: "Title\tStatus\tDue\nBuy milk\tinbox\t2025-11-20",
			want:   TSV, wantOK: true,
		},
		{
			name:   "checklist",
			sample: "Shopping\n- [ ] buy milk\n- [x] buy eggs",
			want:   Checklist, wantOK: true,
		},
		{
			name:   "checklist with commas stays checklist",
			sample: "Notes for the week\n- [ ] eggs, milk, butter",
			want:   Checklist, wantOK: true,
		},
		{
			name:   "prose",
			sample: "Dear diary, nothing happened today.",
			wantOK: false,
		},
		{
			name:   "empty",
			sample: "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect("notes.txt", []byte(tt.sample))
			if ok != tt.wantOK {
				t.Fatalf("Detect ok = %v, want %v (got %v)", ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("Detect = %v, want %v", got, tt.want)
			}
		})
	}
}
