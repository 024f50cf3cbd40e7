package mysql

import (
	"errors"
	"fmt"
	"testing"

	drv "github.com/go-sql-driver/mysql"
)

func TestIsDuplicate(t *testing.T) {
	dup := &drv.MySQLError{Number: 1062, Message: "Duplicate entry '7' for key 'uq_payments_booking'"}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"duplicate", dup, true},
		{"wrapped duplicate", fmt.Errorf("insert: %w", dup), true},
		{"other mysql error", &drv.MySQLError{Number: 1213, Message: "Deadlock"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDuplicate(tc.err); got != tc.want {
				t.Fatalf("isDuplicate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLimitOrMax(t *testing.T) {
	if limitOrMax(25) != 25 {
		t.Fatalf("positive limit changed")
	}
	if limitOrMax(0) <= 1_000_000 || limitOrMax(-3) <= 1_000_000 {
		t.Fatalf("non-positive limit should mean unbounded")
	}
}
