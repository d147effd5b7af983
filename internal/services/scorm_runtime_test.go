package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dr-rompecabezas/lms-backend/internal/types"
)

func TestParseRteMethod(t *testing.T) {
	tests := []struct {
		in   string
		want RteMethod
	}{
		{"Initialize", MethodInitialize},
		{"LMSInitialize", MethodInitialize},
		{"Terminate", MethodTerminate},
		{"LMSFinish", MethodTerminate},
		{"GetValue", MethodGetValue},
		{"LMSGetValue", MethodGetValue},
		{"SetValue", MethodSetValue},
		{"Commit", MethodCommit},
		{"GetLastError", MethodGetLastError},
		{"GetErrorString", MethodGetErrorString},
		{"GetDiagnostic", MethodGetDiagnostic},
		{"getvalue", MethodUnknown},
		{"Eval", MethodUnknown},
		{"__proto__", MethodUnknown},
		{"", MethodUnknown},
	}
	for _, tt := range tests {
		if got := ParseRteMethod(tt.in); got != tt.want {
			t.Errorf("ParseRteMethod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatScormTime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0000:00:00.00"},
		{90 * time.Second, "0000:01:30.00"},
		{time.Hour + 23*time.Minute + 45*time.Second + 670*time.Millisecond, "0001:23:45.67"},
		{100 * time.Hour, "0100:00:00.00"},
		{-5 * time.Second, "0000:00:00.00"},
	}
	for _, tt := range tests {
		if got := formatScormTime(tt.d); got != tt.want {
			t.Errorf("formatScormTime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseScormTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"0000:01:30.00", 90 * time.Second},
		{"0001:23:45.5", time.Hour + 23*time.Minute + 45*time.Second + 500*time.Millisecond},
		{"00:00:10", 10 * time.Second},
		{"garbage", 0},
		{"1:2", 0},
		{"-1:00:00", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseScormTime(tt.in); got != tt.want {
			t.Errorf("parseScormTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatParseScormTimeRoundTrip(t *testing.T) {
	d := 2*time.Hour + 5*time.Minute + 30*time.Second + 250*time.Millisecond
	if got := parseScormTime(formatScormTime(d)); got != d {
		t.Errorf("round trip = %v, want %v", got, d)
	}
}

func TestIsDBLockError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("sqlite3: Database is LOCKED (5)"), true},
		{errors.New("database table is locked: scorm_data"), true},
		{errors.New("duplicate key value violates unique constraint"), false},
		{errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		if got := isDBLockError(tt.err); got != tt.want {
			t.Errorf("isDBLockError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRetryOnDBLock(t *testing.T) {
	log := testLogger(t)

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retryOnDBLock(log, func() error {
			calls++
			return errors.New("database is locked")
		})
		if err == nil {
			t.Fatal("want error after exhausting retries")
		}
		if calls != lockRetryAttempts {
			t.Errorf("calls = %d, want %d", calls, lockRetryAttempts)
		}
	})

	t.Run("succeeds mid-way", func(t *testing.T) {
		calls := 0
		err := retryOnDBLock(log, func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("retryOnDBLock = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("constraint violation")
		err := retryOnDBLock(log, func() error {
			calls++
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("err = %v, want sentinel", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestParamString(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"cmi.core.lesson_status", "cmi.core.lesson_status"},
		{float64(85), "85"},
		{float64(85.5), "85.5"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := paramString(tt.in); got != tt.want {
			t.Errorf("paramString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScormErrorString(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"0", "No error"},
		{"101", "General exception"},
		{"103", "Already initialized"},
		{"113", "Termination after termination"},
		{"122", "Retrieve data before initialization"},
		{"133", "Store data after termination"},
		{"143", "Commit after termination"},
		{"201", "General argument error"},
		{"301", "General get failure"},
		{"401", "General set failure"},
		{"402", "General argument error"},
		{"405", "Element is not an array - cannot have count"},
		{"999", "Unknown error"},
		{"", "Unknown error"},
	}
	for _, tt := range tests {
		if got := scormErrorString(tt.code); got != tt.want {
			t.Errorf("scormErrorString(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCallStatelessMethods(t *testing.T) {
	svc := &scormRuntimeService{log: testLogger(t)}
	attempt := &types.ScormAttempt{ID: uuid.New()}

	tests := []struct {
		name     string
		body     string
		want     string
		wantCode string
	}{
		{"GetLastError", `{"method":"GetLastError","parameters":[]}`, "0", "0"},
		{"GetErrorString known", `{"method":"GetErrorString","parameters":["201"]}`, "General argument error", "0"},
		{"GetErrorString unknown", `{"method":"GetErrorString","parameters":["999"]}`, "Unknown error", "0"},
		{"GetErrorString missing param", `{"method":"GetErrorString","parameters":[]}`, "false", "201"},
		{"GetDiagnostic ignores param", `{"method":"GetDiagnostic","parameters":["detail"]}`, "", "0"},
		{"GetDiagnostic no params", `{"method":"GetDiagnostic","parameters":[]}`, "", "0"},
		{"unknown method", `{"method":"Eval","parameters":[]}`, "false", "201"},
		{"malformed body", `{"method":`, "false", "201"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.Call(context.Background(), attempt, []byte(tt.body))
			if resp.Result != tt.want || resp.ErrorCode != tt.wantCode {
				t.Errorf("Call = {%q, %q}, want {%q, %q}", resp.Result, resp.ErrorCode, tt.want, tt.wantCode)
			}
		})
	}
}
