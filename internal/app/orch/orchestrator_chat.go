package orch

import (
	"github.com/MarcMroz/open-voice-chat/internal/core"
)

// Chat relays a chat line to the whole room under the sender's display name.
func (o *Orchestrator) Chat(sid core.SessionID, text string) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	name, _ := st.Presence.Name(pid)
	o.broadcast(st.ID, "", chatMessage(name, text, o.Clock.Now()))
	return nil
}

// Reaction relays a sound reaction to the whole room.
func (o *Orchestrator) Reaction(sid core.SessionID, url string) error {
	st, pid, err := o.joined(sid)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	name, _ := st.Presence.Name(pid)
	now := o.Clock.Now()
	o.broadcast(st.ID, "", msgReaction{
		Type:      TypeReactionPlayed,
		User:      name,
		URL:       url,
		Time:      now.Format("15:04"),
		Timestamp: now.UnixMilli(),
	})
	return nil
}
