package domain

type RoomID string

// Room is one entry of the room catalog. Credentials never leave the process;
// use Info for anything client-facing.
type Room struct {
	ID           RoomID `json:"id"`
	Name         string `json:"name"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// RoomInfo is the public view of a room.
type RoomInfo struct {
	ID       RoomID `json:"id"`
	Name     string `json:"name"`
	IsLocked bool   `json:"isLocked"`
}

func (r Room) Locked() bool {
	return r.Password != "" || r.PasswordHash != ""
}

func (r Room) Info() RoomInfo {
	return RoomInfo{ID: r.ID, Name: r.Name, IsLocked: r.Locked()}
}

// DefaultRoom is used when the catalog cannot be loaded.
func DefaultRoom() Room {
	return Room{ID: "lobby", Name: "Lobby"}
}
