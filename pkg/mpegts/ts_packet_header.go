// Copyright 2020, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/nazabits"
)

const (
	SyncByte uint8 = 0x47

	TsPacketSize   = 188
	M2tsHeaderSize = 4
	M2tsPacketSize = M2tsHeaderSize + TsPacketSize

	PidNull uint16 = 0x1FFF
)

// ------------------------------------------------
// <iso13818-1.pdf> <2.4.3.2> <page 36/174>
// sync_byte                    [8b]  * always 0x47
// transport_error_indicator    [1b]
// payload_unit_start_indicator [1b]
// transport_priority           [1b]
// PID                          [13b] **
// transport_scrambling_control [2b]
// adaptation_field_control     [2b]
// continuity_counter           [4b]  *
// ------------------------------------------------
type TsPacketHeader struct {
	Sync             uint8
	Err              uint8
	PayloadUnitStart uint8
	Prio             uint8
	Pid              uint16
	Scra             uint8
	Adaptation       uint8
	Cc               uint8
}

// ParseTsPacketHeader 解析4字节TS Packet header
func ParseTsPacketHeader(b []byte) (h TsPacketHeader, err error) {
	if len(b) < 4 {
		return h, base.NewErrBufferTooSmall(4, len(b))
	}
	br := nazabits.NewBitReader(b)
	h.Sync, _ = br.ReadBits8(8)
	h.Err, _ = br.ReadBits8(1)
	h.PayloadUnitStart, _ = br.ReadBits8(1)
	h.Prio, _ = br.ReadBits8(1)
	h.Pid, _ = br.ReadBits16(13)
	h.Scra, _ = br.ReadBits8(2)
	h.Adaptation, _ = br.ReadBits8(2)
	h.Cc, _ = br.ReadBits8(4)
	if h.Sync != SyncByte {
		return h, base.NewErrInvalidFormat("sync_byte", uint32(h.Sync))
	}
	return
}

// CheckTsPacket 长度为188，并且以sync byte开头
func CheckTsPacket(b []byte) error {
	if len(b) < TsPacketSize {
		return base.NewErrBufferTooSmall(TsPacketSize, len(b))
	}
	if b[0] != SyncByte {
		return base.NewErrInvalidFormat("sync_byte", uint32(b[0]))
	}
	return nil
}
