package models

// FallbackLocation используется, когда геолокация недоступна (центр Сеула)
var FallbackLocation = Location{Lat: 37.5665, Lng: 126.978}

// SplitLocation раскладывает координаты на отдельные колонки lat/lng
func SplitLocation(loc *Location) (lat, lng *float64) {
	if loc == nil {
		return nil, nil
	}
	la, ln := loc.Lat, loc.Lng
	return &la, &ln
}

// JoinLocation собирает координаты из колонок; результат есть только если обе колонки не NULL
func JoinLocation(lat, lng *float64) *Location {
	if lat == nil || lng == nil {
		return nil
	}
	return &Location{Lat: *lat, Lng: *lng}
}
