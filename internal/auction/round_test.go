package auction

import (
	"testing"
	"time"
)

func TestRoundResolve(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		bets map[string]bet
		want string
	}{
		{
			name: "greatest bet wins",
			bets: map[string]bet{
				"p0": {seconds: 8.0, receivedAt: base.Add(8 * time.Second), seq: 1},
				"p1": {seconds: 15.0, receivedAt: base.Add(15 * time.Second), seq: 2},
				"p2": {seconds: 5.0, receivedAt: base.Add(5 * time.Second), seq: 0},
				"p3": {seconds: 20.0, receivedAt: base.Add(20 * time.Second), seq: 3},
			},
			want: "p3",
		},
		{
			name: "tie broken by earliest receipt",
			bets: map[string]bet{
				"a": {seconds: 12.5, receivedAt: base.Add(100 * time.Millisecond), seq: 0},
				"b": {seconds: 12.5, receivedAt: base.Add(200 * time.Millisecond), seq: 1},
			},
			want: "a",
		},
		{
			name: "equal instants fall back to acceptance order",
			bets: map[string]bet{
				"a": {seconds: 12.5, receivedAt: base, seq: 0},
				"b": {seconds: 12.5, receivedAt: base, seq: 1},
			},
			want: "a",
		},
		{
			name: "single bet wins",
			bets: map[string]bet{
				"only": {seconds: 0.5, receivedAt: base, seq: 0},
			},
			want: "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRound(3)
			r.bets = tt.bets
			if got := r.resolve(); got != tt.want {
				t.Errorf("resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundRecordBet(t *testing.T) {
	r := newRound(3)
	base := time.Now()
	r.recordBet("p0", 4.2, base)
	r.recordBet("p1", 4.2, base)

	if len(r.bets) != 2 {
		t.Fatalf("expected 2 bets, got %d", len(r.bets))
	}
	if r.bets["p0"].seq >= r.bets["p1"].seq {
		t.Errorf("expected p0 to be sequenced before p1")
	}

	values := r.betValues()
	if values["p0"] != 4.2 || values["p1"] != 4.2 {
		t.Errorf("unexpected bet values: %v", values)
	}
}
