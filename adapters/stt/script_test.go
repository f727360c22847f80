package stt

import (
	"context"
	"testing"

	"github.com/prasasta/revoice/domain/repositories"
)

func TestScriptRecognizer_EnglishText(t *testing.T) {
	r := NewScriptRecognizer()
	clip := repositories.AudioClip{Samples: make([]float64, 16000), SampleRate: 16000}
	interval := repositories.Interval{Index: 1, Start: 2.5, End: 6.75}

	got, err := r.Recognize(context.Background(), clip, interval, "en-US")
	if err != nil {
		t.Fatal(err)
	}
	want := "This is transcript segment 2, time range from 2.50 seconds to 6.75 seconds."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScriptRecognizer_ChineseText(t *testing.T) {
	r := NewScriptRecognizer()
	clip := repositories.AudioClip{Samples: make([]float64, 100), SampleRate: 16000}
	interval := repositories.Interval{Index: 0, Start: 0, End: 3.5}

	got, err := r.Recognize(context.Background(), clip, interval, "zh")
	if err != nil {
		t.Fatal(err)
	}
	want := "这是第1个转写段落，时间范围从0.00秒到3.50秒。"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScriptRecognizer_EmptyClip(t *testing.T) {
	r := NewScriptRecognizer()
	_, err := r.Recognize(context.Background(), repositories.AudioClip{}, repositories.Interval{}, "en-US")
	if err == nil {
		t.Fatal("expected error for empty clip")
	}
}

func TestScriptRecognizer_CanceledContext(t *testing.T) {
	r := NewScriptRecognizer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	clip := repositories.AudioClip{Samples: make([]float64, 10), SampleRate: 16000}
	if _, err := r.Recognize(ctx, clip, repositories.Interval{}, "en-US"); err == nil {
		t.Fatal("expected context error")
	}
}
