package hub

import (
	"reflect"
	"testing"
)

func TestNormalizeKeywordsLengthFilter(t *testing.T) {
	got := NormalizeKeywords(InputDescriptor{Idea: "AI powered dog walking app"})
	want := []string{"powered", "walking"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeKeywords = %v, want %v", got, want)
	}
}

func TestNormalizeKeywordsPhrasesAndDedup(t *testing.T) {
	in := InputDescriptor{
		Idea:             "Meal planning, meal delivery for busy Parents!",
		TargetMarkets:    []string{"  United States ", "parents"},
		AudienceProfiles: []string{"Busy Parents"},
		CompetitorHints:  []string{"HelloFresh", "hellofresh"},
	}
	got := NormalizeKeywords(in)
	want := []string{"meal", "planning", "delivery", "busy", "parents", "united states", "busy parents", "hellofresh"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeKeywords = %v, want %v", got, want)
	}
}

func TestNormalizeKeywordsDeterministic(t *testing.T) {
	in := InputDescriptor{Idea: "Remote team async standup tool", TargetMarkets: []string{"SaaS"}}
	a, b := NormalizeKeywords(in), NormalizeKeywords(in)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("non-deterministic output: %v vs %v", a, b)
	}
}
