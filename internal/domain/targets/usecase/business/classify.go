package business

import (
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
)

// Classify splits chats into sources and destinations. A manual preference
// wins; user chats without one are ignored; chats the sending bot cannot
// reach are sources; everything else follows policy. Input order is kept.
func Classify(chats []domain.Chat, prefs map[string]entities.Purpose, policy entities.Policy) entities.TargetSet {
	set := entities.TargetSet{
		Sources:      []domain.Chat{},
		Destinations: []domain.Chat{},
	}

	for _, chat := range chats {
		if purpose, ok := prefs[chat.Key()]; ok {
			switch purpose {
			case entities.PurposeDestination:
				set.Destinations = append(set.Destinations, chat)
			case entities.PurposeSource:
				set.Sources = append(set.Sources, chat)
			}
			continue
		}

		if chat.Type == domain.ChatTypeUser {
			continue
		}

		if !chat.HasAccess {
			set.Sources = append(set.Sources, chat)
			continue
		}

		if isDestination(chat, policy) {
			set.Destinations = append(set.Destinations, chat)
		} else {
			set.Sources = append(set.Sources, chat)
		}
	}

	return set
}

func isDestination(chat domain.Chat, policy entities.Policy) bool {
	if policy == entities.PolicyAdmin {
		return chat.IsAdmin
	}
	return true
}
