package entities

type ReservationEmailData struct {
	CustomerName       string
	ReservationCode    string
	VehicleName        string
	VehiclePlate       string
	StartTimeFormatted string
	EndTimeFormatted   string
	PriceFormatted     string
	CurrentYear        int
}
