package v1_test

import (
	"errors"
	"fmt"
	"testing"

	api "github.com/nixpig/tsh/api/v1"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestParseJobList(t *testing.T) {
	t.Run("Test valid list", func(t *testing.T) {
		want := []api.Job{
			{ID: 1, PID: 4242, State: "Running", Command: "sleep 5 &"},
			{ID: 3, PID: 4300, State: "Stopped", Command: "vi notes"},
		}

		s, err := api.NewJobList("session-id", want)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		session, got, err := api.ParseJobList(s)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if session != "session-id" {
			t.Errorf("expected session: got '%s', want 'session-id'", session)
		}

		if len(got) != len(want) {
			t.Fatalf("expected jobs: got '%v', want '%v'", got, want)
		}

		for i := range want {
			if got[i] != want[i] {
				t.Errorf("expected job: got '%v', want '%v'", got[i], want[i])
			}
		}
	})

	t.Run("Test empty list", func(t *testing.T) {
		s, err := api.NewJobList("session-id", nil)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		_, got, err := api.ParseJobList(s)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if len(got) != 0 {
			t.Errorf("expected no jobs: got '%v'", got)
		}
	})

	scenarios := map[string]map[string]any{
		"Test missing session": {
			"jobs": []any{},
		},
		"Test missing jobs": {
			"session": "s",
		},
		"Test jobs not a list": {
			"session": "s",
			"jobs":    "none",
		},
		"Test job not an object": {
			"session": "s",
			"jobs":    []any{1},
		},
		"Test job missing pid": {
			"session": "s",
			"jobs": []any{
				map[string]any{"id": 1, "state": "Running", "command": "x"},
			},
		},
		"Test fractional id": {
			"session": "s",
			"jobs": []any{
				map[string]any{"id": 1.5, "pid": 2, "state": "Running", "command": "x"},
			},
		},
		"Test numeric state": {
			"session": "s",
			"jobs": []any{
				map[string]any{"id": 1, "pid": 2, "state": 3, "command": "x"},
			},
		},
	}

	for scenario, fields := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			s, err := structpb.NewStruct(fields)
			if err != nil {
				t.Fatalf("failed to build payload: '%v'", err)
			}

			if _, _, err := api.ParseJobList(s); !errors.Is(err, api.ErrInvalidPayload) {
				t.Errorf("expected to receive ErrInvalidPayload: got '%v'", err)
			}
		})
	}
}

func TestParseSignalRequest(t *testing.T) {
	t.Run("Test valid request", func(t *testing.T) {
		s, err := api.NewSignalRequest("%1", "TERM")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		ref, sig, err := api.ParseSignalRequest(s)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if ref != "%1" || sig != "TERM" {
			t.Errorf("expected request: got '%s' '%s', want '%%1' 'TERM'", ref, sig)
		}
	})

	t.Run("Test missing signal", func(t *testing.T) {
		s, _ := structpb.NewStruct(map[string]any{"reference": "%1"})

		if _, _, err := api.ParseSignalRequest(s); !errors.Is(err, api.ErrInvalidPayload) {
			t.Errorf("expected to receive ErrInvalidPayload: got '%v'", err)
		}
	})

	t.Run("Test nil request", func(t *testing.T) {
		if _, _, err := api.ParseSignalRequest(nil); !errors.Is(err, api.ErrInvalidPayload) {
			t.Errorf("expected to receive ErrInvalidPayload: got '%v'", err)
		}
	})
}

func TestServiceDesc(t *testing.T) {
	t.Run("Test full method names match descriptor", func(t *testing.T) {
		want := map[string]bool{
			api.JobControl_ListJobs_FullMethodName:  true,
			api.JobControl_ResumeJob_FullMethodName: true,
			api.JobControl_SignalJob_FullMethodName: true,
		}

		for _, m := range api.JobControl_ServiceDesc.Methods {
			name := fmt.Sprintf("/%s/%s", api.JobControl_ServiceDesc.ServiceName, m.MethodName)
			if !want[name] {
				t.Errorf("unexpected method in descriptor: '%s'", name)
			}

			delete(want, name)
		}

		for name := range want {
			t.Errorf("method missing from descriptor: '%s'", name)
		}
	})
}
