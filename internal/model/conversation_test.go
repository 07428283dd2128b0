package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationID_CanonicalForAnyOrder(t *testing.T) {
	assert.Equal(t, "alice_bob", ConversationID("alice", "bob"))
	assert.Equal(t, "alice_bob", ConversationID("bob", "alice"))
	assert.Equal(t, ConversationID("u1", "u2"), ConversationID("u2", "u1"))
}

func TestParticipantsFromID(t *testing.T) {
	parts := ParticipantsFromID("alice_bob")
	assert.Equal(t, []string{"alice", "bob"}, parts)
}

func TestOtherParticipant(t *testing.T) {
	conv := Conversation{
		ID:           "alice_bob",
		Participants: []string{"alice", "bob"},
	}

	assert.Equal(t, "bob", conv.OtherParticipant("alice"))
	assert.Equal(t, "alice", conv.OtherParticipant("bob"))
}

func TestHasParticipant(t *testing.T) {
	conv := Conversation{
		ID:           "alice_bob",
		Participants: []string{"alice", "bob"},
	}

	assert.True(t, conv.HasParticipant("alice"))
	assert.False(t, conv.HasParticipant("carol"))
}
