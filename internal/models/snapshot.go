package models

// Snapshot is the metagraph view of the network: which miners are currently
// registered and their on-chain weights.
type Snapshot struct {
	HotkeyToUID  map[string]int     `json:"hotkeyToUid"`
	UIDToHotkey  map[string]string  `json:"uidToHotkey"`
	Incentives   map[string]float64 `json:"incentives"`
	Emissions    map[string]float64 `json:"emissions"`
	Stakes       map[string]float64 `json:"stakes"`
	IsValidator  map[string]bool    `json:"isValidator"`
	TotalNeurons int                `json:"totalNeurons"`
	Error        string             `json:"error,omitempty"`
}

// ActiveMiners returns the set of registered hotkeys, or nil when the
// snapshot is missing or empty. A nil set disables filtering.
func (s *Snapshot) ActiveMiners() map[string]struct{} {
	if s == nil || len(s.HotkeyToUID) == 0 {
		return nil
	}
	active := make(map[string]struct{}, len(s.HotkeyToUID))
	for hotkey := range s.HotkeyToUID {
		active[hotkey] = struct{}{}
	}
	return active
}

// UID returns the uid registered for a hotkey.
func (s *Snapshot) UID(hotkey string) (int, bool) {
	if s == nil {
		return 0, false
	}
	uid, ok := s.HotkeyToUID[hotkey]
	return uid, ok
}
