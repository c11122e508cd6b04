package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsPublishError(t *testing.T) {
	cases := []error{
		&InsufficientTokensError{Required: 50, Available: 10},
		&PlatformNotFoundError{Platform: PlatformVK, PlatformID: "club1"},
		&CategoryNotFoundError{CategoryID: 7},
		&ValidationError{Platform: PlatformPinterest, Field: "board_id", Reason: "пусто"},
		&APIError{Platform: PlatformWebsite, StatusCode: 502, Response: "bad gateway"},
		&ContentGenerationError{Platform: PlatformTelegram, ContentType: "text"},
	}
	for _, err := range cases {
		if !IsPublishError(err) {
			t.Fatalf("ожидали бизнес-ошибку, получили %T", err)
		}
	}
	if IsPublishError(errors.New("boom")) {
		t.Fatalf("обычная ошибка не должна попадать в таксономию")
	}
}

func TestIsPublishErrorWrapped(t *testing.T) {
	err := fmt.Errorf("публикация: %w", &APIError{Platform: PlatformVK, StatusCode: 500})
	if !IsPublishError(err) {
		t.Fatalf("обёрнутая бизнес-ошибка должна распознаваться")
	}
}

func TestContentGenerationErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &ContentGenerationError{ContentType: "image", Cause: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("ожидали исходную ошибку через Unwrap")
	}
}
