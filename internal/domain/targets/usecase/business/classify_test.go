package business

import (
	"testing"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
	"github.com/stretchr/testify/require"
)

var (
	reachableChannel = domain.Chat{ID: -1001, Name: "A Canal", Type: domain.ChatTypeChannel, HasAccess: true, IsAdmin: true}
	reachableGroup   = domain.Chat{ID: -1002, Name: "B Grupo", Type: domain.ChatTypeSupergroup, HasAccess: true}
	hiddenGroup      = domain.Chat{ID: -1003, Name: "C Promo", Type: domain.ChatTypeSupergroup}
	basicGroup       = domain.Chat{ID: -44, Name: "D Basic", Type: domain.ChatTypeGroup, HasAccess: true}
	person           = domain.Chat{ID: 77, Name: "E Pessoa", Type: domain.ChatTypeUser, HasAccess: true}
)

func ids(chats []domain.Chat) []int64 {
	out := make([]int64, len(chats))
	for i, c := range chats {
		out[i] = c.ID
	}
	return out
}

func TestClassify_Permissive(t *testing.T) {
	chats := []domain.Chat{reachableChannel, reachableGroup, hiddenGroup, basicGroup, person}

	set := Classify(chats, nil, entities.PolicyPermissive)

	require.Equal(t, []int64{-1001, -1002, -44}, ids(set.Destinations))
	require.Equal(t, []int64{-1003}, ids(set.Sources))
}

func TestClassify_Admin(t *testing.T) {
	chats := []domain.Chat{reachableChannel, reachableGroup, hiddenGroup, basicGroup, person}

	set := Classify(chats, nil, entities.PolicyAdmin)

	require.Equal(t, []int64{-1001}, ids(set.Destinations))
	require.Equal(t, []int64{-1002, -1003, -44}, ids(set.Sources))
}

func TestClassify_PreferenceOverrides(t *testing.T) {
	chats := []domain.Chat{reachableChannel, hiddenGroup, person}
	prefs := map[string]entities.Purpose{
		hiddenGroup.Key():      entities.PurposeDestination,
		reachableChannel.Key(): entities.PurposeSource,
		person.Key():           entities.PurposeSource,
	}

	for _, policy := range []entities.Policy{entities.PolicyPermissive, entities.PolicyAdmin} {
		set := Classify(chats, prefs, policy)

		require.Equal(t, []int64{-1003}, ids(set.Destinations), policy)
		require.Equal(t, []int64{-1001, 77}, ids(set.Sources), policy)
	}
}

func TestClassify_Disjoint(t *testing.T) {
	chats := []domain.Chat{reachableChannel, reachableGroup, hiddenGroup, basicGroup, person}
	prefs := map[string]entities.Purpose{basicGroup.Key(): entities.PurposeSource}

	set := Classify(chats, prefs, entities.PolicyPermissive)

	seen := map[int64]bool{}
	for _, c := range append(set.Sources, set.Destinations...) {
		require.False(t, seen[c.ID], "chat %d in both sets", c.ID)
		seen[c.ID] = true
	}
}

func TestClassify_Empty(t *testing.T) {
	set := Classify(nil, nil, entities.PolicyPermissive)
	require.Empty(t, set.Sources)
	require.Empty(t, set.Destinations)
}
