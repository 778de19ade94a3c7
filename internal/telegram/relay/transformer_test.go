package relay

import "testing"

func TestRenderCaptionComposition(t *testing.T) {
	tests := []struct {
		name           string
		original       string
		custom         string
		removeOriginal bool
		want           string
	}{
		{
			name:           "remove original keeps only custom",
			original:       "Hello",
			custom:         "Join us",
			removeOriginal: true,
			want:           "Join us",
		},
		{
			name:           "keep original appends custom on new line",
			original:       "Hello",
			custom:         "Join us",
			removeOriginal: false,
			want:           "Hello\nJoin us",
		},
		{
			name:           "remove original without custom yields empty",
			original:       "Hello",
			custom:         "",
			removeOriginal: true,
			want:           "",
		},
		{
			name:           "keep original without custom",
			original:       "Hello",
			custom:         "",
			removeOriginal: false,
			want:           "Hello",
		},
		{
			name:           "custom alone when no original",
			original:       "",
			custom:         "Join us",
			removeOriginal: false,
			want:           "Join us",
		},
		{
			name:           "neither yields empty",
			original:       "",
			custom:         "",
			removeOriginal: false,
			want:           "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &SourceMessage{Kind: KindPhoto, FileID: "file-1", Caption: tt.original}
			plan := Render(msg, tt.custom, tt.removeOriginal)
			if plan.Caption != tt.want {
				t.Fatalf("expected caption %q, got %q", tt.want, plan.Caption)
			}
			if plan.Kind != KindPhoto || plan.FileID != "file-1" {
				t.Fatalf("media reference not preserved: %+v", plan)
			}
		})
	}
}

func TestRenderTextMessage(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		custom         string
		removeOriginal bool
		want           string
		wantEmpty      bool
	}{
		{
			name:           "text with custom appended",
			text:           "Hello",
			custom:         "Join us",
			removeOriginal: false,
			want:           "Hello\nJoin us",
		},
		{
			name:           "text replaced by custom",
			text:           "Hello",
			custom:         "Join us",
			removeOriginal: true,
			want:           "Join us",
		},
		{
			name:           "removed text without custom is empty plan",
			text:           "Hello",
			custom:         "",
			removeOriginal: true,
			want:           "",
			wantEmpty:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &SourceMessage{Kind: KindText, Text: tt.text}
			plan := Render(msg, tt.custom, tt.removeOriginal)
			if plan.Kind != KindText {
				t.Fatalf("expected text plan, got %s", plan.Kind)
			}
			if plan.Text != tt.want {
				t.Fatalf("expected text %q, got %q", tt.want, plan.Text)
			}
			if plan.Empty() != tt.wantEmpty {
				t.Fatalf("expected Empty()=%v, got %v", tt.wantEmpty, plan.Empty())
			}
		})
	}
}

func TestRenderMediaKinds(t *testing.T) {
	for _, kind := range []MessageKind{KindPhoto, KindVideo, KindDocument} {
		t.Run(kind.String(), func(t *testing.T) {
			msg := &SourceMessage{Kind: kind, FileID: "ref", Caption: "c"}
			plan := Render(msg, "", false)
			if plan.Kind != kind {
				t.Fatalf("expected kind %s, got %s", kind, plan.Kind)
			}
			if plan.FileID != "ref" {
				t.Fatalf("expected file reference to pass through, got %q", plan.FileID)
			}
		})
	}
}

func TestRenderUnsupported(t *testing.T) {
	msg := &SourceMessage{Kind: KindUnsupported}
	plan := Render(msg, "Join us", false)
	if plan.Kind != KindUnsupported {
		t.Fatalf("expected unsupported plan, got %s", plan.Kind)
	}
}

func TestRenderDeterministic(t *testing.T) {
	msg := &SourceMessage{Kind: KindVideo, FileID: "v1", Caption: "Hello"}
	first := Render(msg, "Join us", false)
	second := Render(msg, "Join us", false)
	if first != second {
		t.Fatalf("expected identical plans, got %+v and %+v", first, second)
	}
}
