package plugin

import (
	"context"
	"errors"
	"testing"

	"git.home.luguber.info/inful/blogforge/internal/config"
)

func transformPlugin(name string, enforce Enforce, fn func(*TransformInput) (*TransformResult, error)) *Descriptor {
	return &Descriptor{
		Name:    name,
		Enforce: enforce,
		Transform: func(_ context.Context, in *TransformInput) (*TransformResult, error) {
			return fn(in)
		},
	}
}

func TestTransformShortCircuits(t *testing.T) {
	var calls []string
	skip := func(name string) *Descriptor {
		return transformPlugin(name, EnforceNormal, func(*TransformInput) (*TransformResult, error) {
			calls = append(calls, name)
			return nil, nil
		})
	}
	claim := transformPlugin("claims", EnforceNormal, func(*TransformInput) (*TransformResult, error) {
		calls = append(calls, "claims")
		return &TransformResult{Content: []byte("<p>done</p>")}, nil
	})

	dp := NewDispatcher([]*Descriptor{skip("a"), claim, skip("b")})
	res, err := dp.Transform(context.Background(), &TransformInput{Path: "post.md", Content: []byte("# hi")})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res == nil || string(res.Content) != "<p>done</p>" {
		t.Fatalf("res = %v", res)
	}
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "claims" {
		t.Errorf("calls = %v; plugin after the claimer must not run", calls)
	}
}

func TestTransformPassThrough(t *testing.T) {
	decline := transformPlugin("decline", EnforceNormal, func(*TransformInput) (*TransformResult, error) {
		return nil, nil
	})

	dp := NewDispatcher([]*Descriptor{decline})
	res, err := dp.Transform(context.Background(), &TransformInput{Path: "post.md", Content: []byte("raw")})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res != nil {
		t.Errorf("res = %v, want nil (content unchanged)", res)
	}
}

func TestTransformErrorWrapsPluginName(t *testing.T) {
	boom := errors.New("boom")
	failing := transformPlugin("failing", EnforceNormal, func(*TransformInput) (*TransformResult, error) {
		return nil, boom
	})

	dp := NewDispatcher([]*Descriptor{failing})
	_, err := dp.Transform(context.Background(), &TransformInput{Path: "post.md"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("err = %T, want *HookError", err)
	}
	if hookErr.PluginName != "failing" || hookErr.Hook != "transform" {
		t.Errorf("hookErr = %+v", hookErr)
	}
	if !errors.Is(err, boom) {
		t.Error("cause lost through wrapping")
	}
}

func TestTransformHonorsContextCancel(t *testing.T) {
	called := false
	d := transformPlugin("never", EnforceNormal, func(*TransformInput) (*TransformResult, error) {
		called = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dp := NewDispatcher([]*Descriptor{d})
	if _, err := dp.Transform(ctx, &TransformInput{Path: "post.md"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("hook must not run after cancellation")
	}
}

func TestConfigResolvedAbortsOnFirstError(t *testing.T) {
	var calls []string
	ok := &Descriptor{Name: "ok", ConfigResolved: func(context.Context, *config.Config) error {
		calls = append(calls, "ok")
		return nil
	}}
	bad := &Descriptor{Name: "bad", ConfigResolved: func(context.Context, *config.Config) error {
		calls = append(calls, "bad")
		return errors.New("invalid")
	}}
	after := &Descriptor{Name: "after", ConfigResolved: func(context.Context, *config.Config) error {
		calls = append(calls, "after")
		return nil
	}}

	dp := NewDispatcher([]*Descriptor{ok, bad, after})
	err := dp.ConfigResolved(context.Background(), &config.Config{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v; dispatch must stop at the failing plugin", calls)
	}
}

func TestBuildEndRunsAllHooks(t *testing.T) {
	var calls []string
	fail := &Descriptor{Name: "fail", BuildEnd: func(context.Context, *BuildContext, error) error {
		calls = append(calls, "fail")
		return errors.New("cleanup failed")
	}}
	cleanup := &Descriptor{Name: "cleanup", BuildEnd: func(context.Context, *BuildContext, error) error {
		calls = append(calls, "cleanup")
		return nil
	}}

	dp := NewDispatcher([]*Descriptor{fail, cleanup})
	err := dp.BuildEnd(context.Background(), &BuildContext{}, nil)
	if err == nil {
		t.Fatal("expected the first hook error to be returned")
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v; all BuildEnd hooks must run", calls)
	}
}

func TestBuildEndReceivesBuildError(t *testing.T) {
	buildErr := errors.New("build broke")
	var got error
	d := &Descriptor{Name: "observer", BuildEnd: func(_ context.Context, _ *BuildContext, err error) error {
		got = err
		return nil
	}}

	dp := NewDispatcher([]*Descriptor{d})
	if err := dp.BuildEnd(context.Background(), &BuildContext{}, buildErr); err != nil {
		t.Fatalf("BuildEnd() error: %v", err)
	}
	if !errors.Is(got, buildErr) {
		t.Errorf("hook saw %v, want the build error", got)
	}
}
