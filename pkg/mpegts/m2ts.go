// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mpegts

import (
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
	"github.com/q191201771/naza/pkg/nazabits"
)

const (
	// AtsClock arrival_time_stamp的时钟频率
	AtsClock = 27000000

	atsMask uint32 = 0x3FFFFFFF
)

// ------------------------------------------------
// m2ts (BDAV) TP_extra_header
// copy_permission_indicator [2b]
// arrival_time_stamp        [30b] 27MHz
// ------------------------------------------------
type M2tsHeader struct {
	CopyPermission uint8
	Ats            uint32
}

func ParseM2tsHeader(b []byte) (h M2tsHeader, err error) {
	if len(b) < M2tsHeaderSize {
		return h, base.NewErrBufferTooSmall(M2tsHeaderSize, len(b))
	}
	br := nazabits.NewBitReader(b)
	h.CopyPermission, _ = br.ReadBits8(2)
	h.Ats, _ = br.ReadBits32(30)
	return
}

func PutM2tsHeader(b []byte, h M2tsHeader) {
	bele.BePutUint32(b, uint32(h.CopyPermission&0x3)<<30|(h.Ats&atsMask))
}

// Ts2Ns 27MHz的ats转换为纳秒，结果取模2^30
func Ts2Ns(ats uint32) uint32 {
	return uint32(uint64(ats&atsMask)*1000000000/AtsClock) & atsMask
}

// Ns2Ts 纳秒转换为27MHz的ats，结果取模2^30
func Ns2Ts(ns uint32) uint32 {
	return uint32(uint64(ns)*AtsClock/1000000000) & atsMask
}

// SubAts a-b，处理30位翻转，结果为有符号数
func SubAts(a, b uint32) int32 {
	d := (a - b) & atsMask
	if d >= 1<<29 {
		return int32(d) - (1 << 30)
	}
	return int32(d)
}
