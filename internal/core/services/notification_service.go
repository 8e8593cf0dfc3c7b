package services

import (
	"log"

	"github.com/4rubka/ClanMaster/internal/core/domain"
)

// NotificationService is the default Broadcaster: it logs every clan event
// and forwards it to the event hub when one is attached.
type NotificationService struct {
	hub *EventHub
}

var _ Broadcaster = (*NotificationService)(nil)

// NewNotificationService creates a notification service. hub may be nil.
func NewNotificationService(hub *EventHub) *NotificationService {
	return &NotificationService{hub: hub}
}

// Hub returns the attached event hub
func (s *NotificationService) Hub() *EventHub {
	return s.hub
}

func (s *NotificationService) publish(event ClanEvent) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(event)
}

// LevelUp announces a new clan level and the bonus that came with it
func (s *NotificationService) LevelUp(clanName string, level int, bonus domain.Bonus) {
	log.Printf("🎉 Clan %s reached level %d (bonus coins=%.0f, privilege=%q)", clanName, level, bonus.Coins, bonus.Privilege)
	s.publish(ClanEvent{
		Event: "level_up",
		Clan:  clanName,
		Data: map[string]interface{}{
			"level":     level,
			"coins":     bonus.Coins,
			"privilege": bonus.Privilege,
		},
	})
}

// WarDeclared is sent to both sides
func (s *NotificationService) WarDeclared(clanName, enemyName string) {
	log.Printf("⚔️ Clan %s declared war on %s", clanName, enemyName)
	s.publish(ClanEvent{Event: "war_declared", Clan: clanName, Data: map[string]interface{}{"enemy": enemyName}})
	s.publish(ClanEvent{Event: "war_declared", Clan: enemyName, Data: map[string]interface{}{"enemy": clanName}})
}

// WarEnded is sent to both sides. winner is empty on a tie.
func (s *NotificationService) WarEnded(clanName, enemyName, winner string) {
	if winner == "" {
		log.Printf("🏳️ War between %s and %s ended in a tie", clanName, enemyName)
	} else {
		log.Printf("🏆 War between %s and %s ended, winner %s", clanName, enemyName, winner)
	}
	s.publish(ClanEvent{Event: "war_ended", Clan: clanName, Data: map[string]interface{}{"enemy": enemyName, "winner": winner}})
	s.publish(ClanEvent{Event: "war_ended", Clan: enemyName, Data: map[string]interface{}{"enemy": clanName, "winner": winner}})
}

// ClanDisbanded announces a removed clan
func (s *NotificationService) ClanDisbanded(clanName string) {
	log.Printf("🗑️ Clan %s disbanded", clanName)
	s.publish(ClanEvent{Event: "disbanded", Clan: clanName})
}
