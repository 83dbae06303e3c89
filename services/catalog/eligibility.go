package catalog

import "linklock/services/geo"

// Eligible filters the catalog down to the tasks a visitor must complete:
// Active, targeting the visitor's device, with a positive CPM for the
// visitor's tier. The filter is stable; catalog order is the order the
// visitor works through the gate.
func Eligible(tasks []Task, device geo.Device, tier geo.Tier) []Task {
	eligible := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != StatusActive {
			continue
		}
		if !t.SupportsDevice(device) {
			continue
		}
		if t.TierCPM(tier) <= 0 {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible
}
