package extraction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resemantic/resemantic/internal/domain/models"
)

func TestBuildContext_EmptyHistory(t *testing.T) {
	require.Equal(t, StartOfConversation, BuildContext(nil, 2))
	require.Equal(t, StartOfConversation, BuildContext([]models.HistoryItem{}, 2))
}

func TestBuildContext_ZeroWindow(t *testing.T) {
	history := []models.HistoryItem{{Role: models.RoleUser, Content: "hello"}}
	require.Equal(t, StartOfConversation, BuildContext(history, 0))
}

func TestBuildContext_RendersRoles(t *testing.T) {
	history := []models.HistoryItem{
		{Role: models.RoleUser, Content: "what is a webhook?"},
		{Role: models.RoleAssistant, Content: "a callback over HTTP"},
	}
	got := BuildContext(history, 2)
	require.Equal(t, "User: what is a webhook?\nAssistant: a callback over HTTP", got)
}

func TestBuildContext_WindowIgnoresEarlierHistory(t *testing.T) {
	recent := []models.HistoryItem{
		{Role: models.RoleUser, Content: "recent question"},
		{Role: models.RoleAssistant, Content: "recent answer"},
	}
	withOld := append([]models.HistoryItem{
		{Role: models.RoleUser, Content: "ancient question"},
		{Role: models.RoleAssistant, Content: "ancient answer"},
	}, recent...)

	require.Equal(t, BuildContext(recent, 2), BuildContext(withOld, 2))
}

func TestBuildContext_UnknownRolesSkipped(t *testing.T) {
	history := []models.HistoryItem{
		{Role: "system", Content: "ignored"},
		{Role: models.RoleUser, Content: "kept"},
	}
	require.Equal(t, "User: kept", BuildContext(history, 2))
}

func TestBuildContext_OnlyUnknownRoles(t *testing.T) {
	history := []models.HistoryItem{{Role: "system", Content: "ignored"}}
	require.Equal(t, StartOfConversation, BuildContext(history, 2))
}
