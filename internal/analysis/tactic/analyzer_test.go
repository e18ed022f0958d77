package tactic

import "testing"

func TestAnalyzePrizeScamRequestingBank(t *testing.T) {
	decision := Analyze("Congratulations! You won the lottery, I need your bank details to send the prize")
	if decision.Strategy != PrizeScam {
		t.Fatalf("expected prize scam, got %s", decision.Strategy)
	}
	if decision.Trap != "card" {
		t.Fatalf("expected card trap, got %q", decision.Trap)
	}
	if decision.Score == 0 {
		t.Fatal("expected non-zero score")
	}
}

func TestAnalyzeThreateningImpersonation(t *testing.T) {
	decision := Analyze("This is the IRS. Pay the tax penalty or the police will arrest you")
	if decision.Psychology != Threatening {
		t.Fatalf("expected threatening psychology, got %s", decision.Psychology)
	}
	if decision.Strategy != Impersonation {
		t.Fatalf("expected impersonation strategy, got %s", decision.Strategy)
	}
}

func TestAnalyzeShoutingIsAggressive(t *testing.T) {
	decision := Analyze("Answer me!!!")
	if decision.Psychology != Aggressive {
		t.Fatalf("expected aggressive psychology, got %s", decision.Psychology)
	}
}

func TestAnalyzeNeutralMessage(t *testing.T) {
	decision := Analyze("hello there")
	if decision.Psychology != Calm || decision.Strategy != General {
		t.Fatalf("expected calm/general, got %s/%s", decision.Psychology, decision.Strategy)
	}
	if decision.Trap != "" {
		t.Fatalf("expected no trap, got %q", decision.Trap)
	}
}

func TestAnalyzeEmptyMessage(t *testing.T) {
	decision := Analyze("   ")
	if decision.Psychology != Calm || decision.Score != 0 {
		t.Fatalf("unexpected decision for empty message: %+v", decision)
	}
}
