package viiper

import (
	"encoding/binary"
	"io"
)

// Device type VIIPER creates for the shared pad.
const deviceType = "xbox360"

const (
	inputStateSize  = 20
	rumbleStateSize = 2
)

// inputState is the xbox360 client-to-server stream report.
//
//	0-3:   buttons (u32 LE, XInput masks)
//	4,5:   LT, RT
//	6-13:  LX, LY, RX, RY (i16 LE)
//	14-19: reserved
type inputState struct {
	Buttons uint32
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

func (x *inputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, inputStateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

func (x *inputState) UnmarshalBinary(data []byte) error {
	if len(data) < inputStateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// rumbleState is the server-to-client motor report.
type rumbleState struct {
	LeftMotor  uint8
	RightMotor uint8
}

func (r *rumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < rumbleStateSize {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}

// VIIPER management API responses used by the driver.

type busListResponse struct {
	Buses []uint32 `json:"buses"`
}

type busCreateResponse struct {
	BusID uint32 `json:"busId"`
}

type deviceInfo struct {
	BusID uint32 `json:"busId"`
	DevID string `json:"devId"`
	Vid   string `json:"vid"`
	Pid   string `json:"pid"`
	Type  string `json:"type"`
}

type busRemoveResponse struct {
	BusID uint32 `json:"busId"`
}

type deviceCreateRequest struct {
	Type string `json:"type"`
}

type deviceRemoveResponse struct {
	BusID uint32 `json:"busId"`
	DevID string `json:"devId"`
}
