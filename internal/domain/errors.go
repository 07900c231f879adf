package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrItemWithoutID = errors.New("item has no id")
	ErrWrongPassword = errors.New("wrong room password")
)
