package roomhandler

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
} // @name HealthResponse

type RoomResponse struct {
	SpaceID   string `json:"spaceId"   example:"cm3x1y2z0000"`
	Occupants int    `json:"occupants" example:"3"`
} // @name RoomResponse
