package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimsFromContext_RoundTrip(t *testing.T) {
	claims := &Claims{Subject: "sub-1", TeacherID: "teacher-9", Role: "teacher"}
	ctx := ContextWithClaims(context.Background(), claims)

	got := ClaimsFromContext(ctx)
	assert.Equal(t, claims, got)
}

func TestClaimsFromContext_EmptyWhenAbsent(t *testing.T) {
	assert.Nil(t, ClaimsFromContext(context.Background()))
}
