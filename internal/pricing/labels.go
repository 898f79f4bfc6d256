package pricing

import "github.com/mmynk/mealbox/internal/models"

// Labeler renders delivery days for display.
//
// Customers on a remapped route receive their boxes a day later, so they see
// Monday and Thursday. The stored selection is always Sunday/Wednesday/Both.
type Labeler struct {
	remapped map[int]struct{}
}

// NewLabeler creates a Labeler for the given remapped route ids.
func NewLabeler(remappedRoutes []int) Labeler {
	set := make(map[int]struct{}, len(remappedRoutes))
	for _, id := range remappedRoutes {
		set[id] = struct{}{}
	}
	return Labeler{remapped: set}
}

// Remapped reports whether routeID uses the shifted calendar.
func (l Labeler) Remapped(routeID int) bool {
	_, ok := l.remapped[routeID]
	return ok
}

// Label returns the display string for a delivery selection.
func (l Labeler) Label(day models.DeliveryDay, routeID int) string {
	switch day {
	case models.DeliveryBoth:
		return l.DayLabel(models.Sunday, routeID) + " & " + l.DayLabel(models.Wednesday, routeID)
	case models.DeliverySunday:
		return l.DayLabel(models.Sunday, routeID)
	case models.DeliveryWednesday:
		return l.DayLabel(models.Wednesday, routeID)
	}
	return string(day)
}

// DayLabel returns the display string for a single delivery day.
func (l Labeler) DayLabel(day models.Day, routeID int) string {
	shifted := l.Remapped(routeID)
	switch day {
	case models.Sunday:
		if shifted {
			return "Monday"
		}
		return "Sunday"
	case models.Wednesday:
		if shifted {
			return "Thursday"
		}
		return "Wednesday"
	}
	return string(day)
}
