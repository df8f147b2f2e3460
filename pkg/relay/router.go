package relay

import "sozvon.me/model"

// Route computes the delivery set for one envelope from sender among
// members, which must be the current room membership.
//
// With a targetId the message is a unicast: it goes to the target if the
// target is still a member, and is always echoed back to the sender, even
// when the target already left. The echo keeps the sending UI consistent
// with what was actually transmitted, admin commands rely on it.
//
// Without a targetId the message is a room broadcast: every member except
// the sender, no echo.
func Route(members []*model.Peer, sender *model.Peer, targetID string) []*model.Peer {
	if targetID != "" {
		recipients := make([]*model.Peer, 0, 2)
		for _, p := range members {
			if p.ID == targetID {
				recipients = append(recipients, p)
				break
			}
		}
		return append(recipients, sender)
	}

	recipients := make([]*model.Peer, 0, len(members))
	for _, p := range members {
		if p.ID != sender.ID {
			recipients = append(recipients, p)
		}
	}
	return recipients
}
