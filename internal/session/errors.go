package session

// Kind classifies a failure. Every manager failure is recoverable: the
// gateway surfaces it to the originating connection and room state is left
// untouched.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindCapacity
)

// Error is a tagged failure result with a stable reason code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches by reason code so errors.Is works against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrRoomNotFound   = &Error{Kind: KindNotFound, Code: "RoomNotFound", Message: "room not found"}
	ErrPlayerNotFound = &Error{Kind: KindNotFound, Code: "PlayerNotFound", Message: "player not found"}

	ErrRoomFull            = &Error{Kind: KindCapacity, Code: "RoomFull", Message: "room is full"}
	ErrInsufficientPlayers = &Error{Kind: KindCapacity, Code: "InsufficientPlayers", Message: "need at least two players to deal"}

	ErrInvalidAction     = &Error{Kind: KindValidation, Code: "InvalidAction", Message: "unknown player action"}
	ErrIllegalCheck      = &Error{Kind: KindValidation, Code: "IllegalCheck", Message: "cannot check while a bet is pending"}
	ErrInsufficientChips = &Error{Kind: KindValidation, Code: "InsufficientChips", Message: "not enough chips"}
	ErrInvalidRaise      = &Error{Kind: KindValidation, Code: "InvalidRaise", Message: "raise must exceed the current bet"}
	ErrAlreadyInRoom     = &Error{Kind: KindValidation, Code: "AlreadyInRoom", Message: "connection is already seated in another room"}
)
