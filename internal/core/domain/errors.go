package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrTrainNotFound   = errors.New("train not found")
	ErrStationNotFound = errors.New("station not found")
	ErrNoAccessToken   = errors.New("no access token")
)

// MsgNotConnected is the soft-failure message for lost connectivity.
const MsgNotConnected = "internet not connected"
