package xmlresource

import (
	"testing"
	"time"

	reserr "github.com/jacoelho/xmlresource/errors"
)

func TestOptionsDefaults(t *testing.T) {
	resolved, err := NewOptions().withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() failed: %v", err)
	}
	if resolved.allow != AllowAll {
		t.Errorf("allow = %q, want %q", resolved.allow, AllowAll)
	}
	if resolved.defuse != DefuseRemote {
		t.Errorf("defuse = %q, want %q", resolved.defuse, DefuseRemote)
	}
	if resolved.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", resolved.timeout, defaultTimeout)
	}
	if resolved.lazy != 0 {
		t.Errorf("lazy = %d, want 0", resolved.lazy)
	}
	if !resolved.thinLazy {
		t.Error("thinLazy should default to true")
	}
	if resolved.iterParse == nil {
		t.Error("iterParse should default to the built-in parser")
	}
	if resolved.opener == nil {
		t.Error("opener should default to the built-in opener")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"invalid allow mode", NewOptions().WithAllow("whatever")},
		{"invalid defuse mode", NewOptions().WithDefuse("sometimes")},
		{"sandbox without base URL", NewOptions().WithAllow(AllowSandbox)},
		{"negative timeout", NewOptions().WithTimeout(-time.Second)},
		{"negative lazy depth", NewOptions().WithLazy(-1)},
		{"negative max depth", NewOptions().WithMaxDepth(-1)},
		{"negative max attrs", NewOptions().WithMaxAttrs(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if !reserr.Is(err, reserr.ErrValue) {
				t.Fatalf("expected a value error, got %v", err)
			}
		})
	}

	valid := NewOptions().
		WithAllow(AllowSandbox).
		WithBaseURL("/srv/data").
		WithDefuse(DefuseAlways).
		WithLazy(2).
		WithThinLazy(false).
		WithTimeout(10 * time.Second)
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() failed on valid options: %v", err)
	}
}

func TestOptionsBuildersDoNotMutate(t *testing.T) {
	base := NewOptions()
	derived := base.WithLazy(3).WithAllow(AllowNone)

	if base.lazy.set {
		t.Error("base options mutated by WithLazy")
	}
	if base.allow != "" {
		t.Error("base options mutated by WithAllow")
	}
	if derived.lazy.resolved() != 3 || derived.allow != AllowNone {
		t.Error("derived options incomplete")
	}
}

func TestOptionsThinLazyOff(t *testing.T) {
	resolved, err := NewOptions().WithThinLazy(false).withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() failed: %v", err)
	}
	if resolved.thinLazy {
		t.Error("thinLazy not disabled")
	}
}
