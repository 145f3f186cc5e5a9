package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/domain/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testMessage(id, role string) *models.Message {
	return &models.Message{
		ID:        id,
		Role:      role,
		Content:   "content of " + id,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

func testUnit(unitID, messageID string) *models.SemanticUnit {
	return &models.SemanticUnit{
		UnitID:        unitID,
		MessageID:     messageID,
		Content:       "User decided to use webhook retry with exponential backoff",
		Speaker:       "user",
		Type:          models.UnitTypeDecision,
		NarrativeRole: models.NarrativeCore,
		Certainty:     models.CertaintyHigh,
		Concepts:      []string{"webhook retry", "exponential backoff"},
		BlockMetadata: &models.BlockMetadata{
			DecisionChoice: "webhook retry with exponential backoff",
			DecisionReason: "resilience against transient failures",
		},
	}
}

func testProposition(id, unitID string) *models.Proposition {
	return &models.Proposition{
		ID:              id,
		Content:         "The user chose webhook retry with exponential backoff",
		Type:            models.UnitTypeDecision,
		Certainty:       models.CertaintyHigh,
		Concepts:        []string{"webhook retry"},
		SUID:            unitID,
		SourceMessageID: "msg_user",
		Speaker:         "user",
		Timestamp:       time.Now().UTC(),
	}
}

func TestStoreMessage_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := testMessage("msg_user", models.RoleUser)
	require.NoError(t, store.StoreMessage(ctx, msg))

	got, err := store.GetMessage(ctx, "msg_user")
	require.NoError(t, err)
	require.Equal(t, msg.ID, got.ID)
	require.Equal(t, msg.Role, got.Role)
	require.Equal(t, msg.Content, got.Content)
	require.True(t, msg.Timestamp.Equal(got.Timestamp))
}

func TestStoreMessage_RejectsInvalidRole(t *testing.T) {
	store := newTestStore(t)

	err := store.StoreMessage(context.Background(), testMessage("msg_1", "narrator"))
	require.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestStoreMessage_UpsertDoesNotDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := testMessage("msg_user", models.RoleUser)
	require.NoError(t, store.StoreMessage(ctx, msg))

	msg.Content = "revised content"
	require.NoError(t, store.StoreMessage(ctx, msg))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Messages)

	got, err := store.GetMessage(ctx, "msg_user")
	require.NoError(t, err)
	require.Equal(t, "revised content", got.Content)
}

func TestReasoningMessageRole(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reasoning := &models.Message{
		ID:        models.ReasoningMessageID("msg_assistant"),
		Role:      models.RoleAssistantReasoning,
		Content:   "Considered alternatives before answering",
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, store.StoreMessage(ctx, reasoning))

	got, err := store.GetMessage(ctx, "msg_assistant_reasoning")
	require.NoError(t, err)
	require.Equal(t, models.RoleAssistantReasoning, got.Role)
}

func TestSemanticUnit_RoundTripPreservesBlockMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreMessage(ctx, testMessage("msg_user", models.RoleUser)))
	su := testUnit("su_1", "msg_user")
	require.NoError(t, store.StoreSemanticUnit(ctx, su))

	got, err := store.GetSemanticUnit(ctx, "su_1")
	require.NoError(t, err)
	require.Equal(t, su.Content, got.Content)
	require.Equal(t, su.Concepts, got.Concepts)
	require.NotNil(t, got.BlockMetadata)
	require.Equal(t, "resilience against transient failures", got.BlockMetadata.DecisionReason)
}

func TestGetSemanticUnitsByMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreMessage(ctx, testMessage("msg_user", models.RoleUser)))
	require.NoError(t, store.StoreSemanticUnit(ctx, testUnit("su_1", "msg_user")))

	units, err := store.GetSemanticUnitsByMessage(ctx, "msg_user")
	require.NoError(t, err)
	require.Len(t, units, 1)
	require.Equal(t, "su_1", units[0].UnitID)
}

func TestStoreProposition_RequiresSemanticUnitID(t *testing.T) {
	store := newTestStore(t)

	p := testProposition("prop_1", "")
	err := store.StoreProposition(context.Background(), p)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestStoreProposition_UpsertByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.StoreMessage(ctx, testMessage("msg_user", models.RoleUser)))
	require.NoError(t, store.StoreSemanticUnit(ctx, testUnit("su_1", "msg_user")))

	p := testProposition("prop_1", "su_1")
	require.NoError(t, store.StoreProposition(ctx, p))
	require.NoError(t, store.StoreProposition(ctx, p))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Propositions)
}

func TestGetFullLineage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := testMessage("msg_user", models.RoleUser)
	require.NoError(t, store.StoreMessage(ctx, msg))
	require.NoError(t, store.StoreSemanticUnit(ctx, testUnit("su_1", "msg_user")))
	require.NoError(t, store.StoreProposition(ctx, testProposition("prop_1", "su_1")))

	lineage, err := store.GetFullLineage(ctx, "prop_1")
	require.NoError(t, err)
	require.Equal(t, "msg_user", lineage.Message.ID)
	require.Equal(t, "su_1", lineage.SemanticUnit.UnitID)
	require.Equal(t, "prop_1", lineage.Proposition.ID)
	require.Equal(t, "su_1", lineage.Proposition.SUID)
}

func TestGetFullLineage_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFullLineage(context.Background(), "missing")
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConcurrentWritesAreSerialized(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			msg := testMessage(string(rune('a'+i)), models.RoleUser)
			done <- store.StoreMessage(ctx, msg)
		}(i)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 10, stats.Messages)
}
