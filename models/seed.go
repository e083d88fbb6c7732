// ABOUTME: Hardcoded default data for cold starts
// ABOUTME: Seeds the room grid when both local and remote stores are empty
package models

import "fmt"

// DefaultRooms returns the seed room list used when the rooms collection is
// still empty after bootstrap: two floors of standards, a deluxe wing, and two
// suites. Ids are stable strings so repeated seeding stays idempotent.
func DefaultRooms() []Room {
	var rooms []Room
	add := func(number, roomType string, floor int, rate int64) {
		rooms = append(rooms, Room{
			ID:     fmt.Sprintf("room-%s", number),
			Number: number,
			Type:   roomType,
			Floor:  floor,
			Rate:   rate,
			Status: RoomVacant,
		})
	}

	for i := 1; i <= 6; i++ {
		add(fmt.Sprintf("10%d", i), "STANDARD", 1, 2500)
	}
	for i := 1; i <= 6; i++ {
		add(fmt.Sprintf("20%d", i), "DELUXE", 2, 4000)
	}
	add("301", "SUITE", 3, 7500)
	add("302", "SUITE", 3, 7500)

	return rooms
}

// DefaultSettings returns the initial singleton settings record.
func DefaultSettings() Settings {
	return Settings{
		ID:           SettingsID,
		PropertyName: "My Property",
		TaxRate:      0.12,
		Currency:     "INR",
		RoomTypes: []RoomType{
			{Name: "STANDARD", Rate: 2500},
			{Name: "DELUXE", Rate: 4000},
			{Name: "SUITE", Rate: 7500},
		},
	}
}
