package policy

import (
	"testing"

	"github.com/filegate/filegate/pkg/operr"
)

func mustNew(t *testing.T, spec Spec) *AccessPolicy {
	t.Helper()
	p, err := New(spec)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEvaluateFixedPrecedence(t *testing.T) {
	p := mustNew(t, Spec{
		AllowedPaths:     []string{"/ws"},
		DeniedPaths:      []string{"/ws/secret"},
		DeniedExtensions: []string{"exe"},
	})

	tests := []struct {
		name string
		req  Request
		want operr.Kind // "" means allow
	}{
		{
			name: "allowed file",
			req:  Request{Path: "/ws/a.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown},
			want: "",
		},
		{
			name: "denied path wins over allowed",
			req:  Request{Path: "/ws/secret/f.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown},
			want: operr.KindPathNotAllowed,
		},
		{
			name: "denied path exactly",
			req:  Request{Path: "/ws/secret", Class: ClassRead, Size: SizeUnknown},
			want: operr.KindPathNotAllowed,
		},
		{
			name: "outside allowed set",
			req:  Request{Path: "/etc/passwd", Class: ClassRead, FileOp: true, Size: SizeUnknown},
			want: operr.KindPathNotAllowed,
		},
		{
			name: "denied extension",
			req:  Request{Path: "/ws/a.exe", Class: ClassWrite, FileOp: true, Size: SizeUnknown},
			want: operr.KindExtensionNotAllowed,
		},
		{
			name: "extension rule skipped for directories",
			req:  Request{Path: "/ws/dir.exe", Class: ClassRead, FileOp: false, Size: SizeUnknown},
			want: "",
		},
		{
			name: "hidden component",
			req:  Request{Path: "/ws/.git/config", Class: ClassRead, FileOp: true, Size: SizeUnknown},
			want: operr.KindHiddenFileNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Policy evaluation is deterministic; run twice to make
			// that visible.
			for i := 0; i < 2; i++ {
				err := p.Evaluate(tt.req)
				if tt.want == "" {
					if err != nil {
						t.Fatalf("run %d: want allow, got %v", i, err)
					}
					continue
				}
				if err == nil {
					t.Fatalf("run %d: want %v, got allow", i, tt.want)
				}
				if got := operr.KindOf(err); got != tt.want {
					t.Fatalf("run %d: kind = %v, want %v", i, got, tt.want)
				}
			}
		})
	}
}

func TestEvaluateComponentWiseNesting(t *testing.T) {
	p := mustNew(t, Spec{AllowedPaths: []string{"/a/b"}, AllowHiddenFiles: true})

	if err := p.Evaluate(Request{Path: "/a/b/c", Class: ClassRead, Size: SizeUnknown}); err != nil {
		t.Errorf("/a/b/c is nested under /a/b: %v", err)
	}
	if err := p.Evaluate(Request{Path: "/a/b", Class: ClassRead, Size: SizeUnknown}); err != nil {
		t.Errorf("/a/b equals the allowed entry: %v", err)
	}
	if err := p.Evaluate(Request{Path: "/a/bc", Class: ClassRead, Size: SizeUnknown}); err == nil {
		t.Error("/a/bc must not be treated as nested under /a/b")
	}
}

func TestEvaluateDeniedAlwaysWins(t *testing.T) {
	// The same directory appears in both sets; denied must win.
	p := mustNew(t, Spec{
		AllowedPaths: []string{"/ws", "/ws/both"},
		DeniedPaths:  []string{"/ws/both"},
	})

	err := p.Evaluate(Request{Path: "/ws/both/f.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown})
	if !operr.IsKind(err, operr.KindPathNotAllowed) {
		t.Errorf("want PathNotAllowed, got %v", err)
	}
}

func TestEvaluateEmptyAllowSetIsUnrestricted(t *testing.T) {
	p := mustNew(t, Spec{DeniedPaths: []string{"/forbidden"}, AllowHiddenFiles: true})

	if err := p.Evaluate(Request{Path: "/anywhere/else.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown}); err != nil {
		t.Errorf("empty allow-set means unrestricted: %v", err)
	}
	err := p.Evaluate(Request{Path: "/forbidden/f.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown})
	if !operr.IsKind(err, operr.KindPathNotAllowed) {
		t.Errorf("denied entry must still fire: %v", err)
	}
}

func TestEvaluateExtensionRules(t *testing.T) {
	p := mustNew(t, Spec{
		AllowedExtensions: []string{"txt", "md"},
		DeniedExtensions:  []string{"txt"}, // overlaps on purpose: denied wins
	})

	tests := []struct {
		path string
		want operr.Kind
	}{
		{"/ws/ok.md", ""},
		{"/ws/ok.MD", ""}, // case-insensitive
		{"/ws/no.txt", operr.KindExtensionNotAllowed},
		{"/ws/no.exe", operr.KindExtensionNotAllowed},
		{"/ws/noext", operr.KindExtensionNotAllowed}, // allow-set configured
	}

	for _, tt := range tests {
		err := p.Evaluate(Request{Path: tt.path, Class: ClassRead, FileOp: true, Size: SizeUnknown})
		if tt.want == "" && err != nil {
			t.Errorf("%s: want allow, got %v", tt.path, err)
		}
		if tt.want != "" && !operr.IsKind(err, tt.want) {
			t.Errorf("%s: want %v, got %v", tt.path, tt.want, err)
		}
	}
}

func TestEvaluateNoExtensionWithoutAllowSet(t *testing.T) {
	p := mustNew(t, Spec{DeniedExtensions: []string{"exe"}})

	if err := p.Evaluate(Request{Path: "/ws/Makefile", Class: ClassRead, FileOp: true, Size: SizeUnknown}); err != nil {
		t.Errorf("extension-less file should pass with no allow-set: %v", err)
	}
}

func TestEvaluateReadOnly(t *testing.T) {
	p := mustNew(t, Spec{ReadOnly: true, AllowHiddenFiles: true})

	if err := p.Evaluate(Request{Path: "/ws/f.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown}); err != nil {
		t.Errorf("reads must pass in read-only mode: %v", err)
	}

	// Read-only also blocks non-file write-class operations such as
	// directory creation.
	err := p.Evaluate(Request{Path: "/ws/newdir", Class: ClassWrite, Size: SizeUnknown})
	if !operr.IsKind(err, operr.KindReadOnlyViolation) {
		t.Errorf("want ReadOnlyViolation, got %v", err)
	}
}

func TestEvaluateSize(t *testing.T) {
	p := mustNew(t, Spec{MaxFileSize: 8, AllowHiddenFiles: true})

	if err := p.Evaluate(Request{Path: "/ws/f.txt", Class: ClassWrite, FileOp: true, Size: 8}); err != nil {
		t.Errorf("at the ceiling should pass: %v", err)
	}
	err := p.Evaluate(Request{Path: "/ws/f.txt", Class: ClassWrite, FileOp: true, Size: 9})
	if !operr.IsKind(err, operr.KindSizeLimitExceeded) {
		t.Errorf("want SizeLimitExceeded, got %v", err)
	}
}

func TestEvaluateHiddenBelowSandboxRoot(t *testing.T) {
	// The allowed root itself may contain a dot component; only
	// components below the root are judged.
	p := mustNew(t, Spec{AllowedPaths: []string{"/home/user/.workspace"}})

	if err := p.Evaluate(Request{Path: "/home/user/.workspace/notes.txt", Class: ClassRead, FileOp: true, Size: SizeUnknown}); err != nil {
		t.Errorf("dot component in the root itself must not fire: %v", err)
	}
	err := p.Evaluate(Request{Path: "/home/user/.workspace/.env", Class: ClassRead, FileOp: true, Size: SizeUnknown})
	if !operr.IsKind(err, operr.KindHiddenFileNotAllowed) {
		t.Errorf("want HiddenFileNotAllowed, got %v", err)
	}
}
