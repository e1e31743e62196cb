// Copyright 2019, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc

import (
	"fmt"

	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

var NaluStartCode4 = []byte{0x0, 0x0, 0x0, 0x1}

// H.264-AVC-ISO_IEC_14496-10.pdf
// Table 7-1 – NAL unit type codes
//
// rfc6184 5.2 Common Structure of the RTP Payload Format
const (
	NaluTypeUnspecified uint8 = 0
	NaluTypeSlice       uint8 = 1
	NaluTypeSliceA      uint8 = 2
	NaluTypeSliceB      uint8 = 3
	NaluTypeSliceC      uint8 = 4
	NaluTypeIdrSlice    uint8 = 5
	NaluTypeSei         uint8 = 6
	NaluTypeSps         uint8 = 7
	NaluTypePps         uint8 = 8
	NaluTypeAud         uint8 = 9 // Access Unit Delimiter
	NaluTypeEndOfSeq    uint8 = 10
	NaluTypeEndOfStream uint8 = 11
	NaluTypeFd          uint8 = 12 // Filler Data

	NaluTypeStapA  uint8 = 24
	NaluTypeStapB  uint8 = 25
	NaluTypeMtap16 uint8 = 26
	NaluTypeMtap24 uint8 = 27
	NaluTypeFuA    uint8 = 28
	NaluTypeFuB    uint8 = 29
)

var NaluTypeMapping = map[uint8]string{
	1:  "SLICE",
	2:  "SLICEA",
	3:  "SLICEB",
	4:  "SLICEC",
	5:  "IDR",
	6:  "SEI",
	7:  "SPS",
	8:  "PPS",
	9:  "AUD",
	10: "EOSEQ",
	11: "EOSTREAM",
	12: "FD",
	24: "STAPA",
	25: "STAPB",
	26: "MTAP16",
	27: "MTAP24",
	28: "FUA",
	29: "FUB",
}

// ParseNaluType
//
// @param v: nalu的第一个字节
func ParseNaluType(v uint8) uint8 {
	return v & 0x1f
}

func ParseNaluTypeReadable(v uint8) string {
	ret, ok := NaluTypeMapping[ParseNaluType(v)]
	if !ok {
		return "unknown"
	}
	return ret
}

// IsVcl 编码后的图像数据，1~5
func IsVcl(t uint8) bool {
	return t >= NaluTypeSlice && t <= NaluTypeIdrSlice
}

// IsUnspecified 0, 30, 31 未定义的类型，作为单个nalu发送或接收时都视为非法
func IsUnspecified(t uint8) bool {
	return t == NaluTypeUnspecified || t >= 30
}

// IterateNaluStartCode 从start位置开始查找第一个start code
//
// @return pos:    start code的起始位置（包含start code自身），找不到时返回-1
// @return length: start code的长度，3或者4，找不到时返回-1
func IterateNaluStartCode(nalu []byte, start int) (pos, length int) {
	if nalu == nil || start < 0 || start >= len(nalu) {
		return -1, -1
	}
	count := 0
	for i := start; i < len(nalu); i++ {
		switch nalu[i] {
		case 0:
			count++
		case 1:
			if count >= 3 {
				return i - 3, 4
			}
			if count == 2 {
				return i - 2, 3
			}
			count = 0
		default:
			count = 0
		}
	}
	return -1, -1
}

// IterateNaluAnnexb 遍历annexb格式的nalu流，handler中的nal不包含start code
//
// 第一个start code前面的数据被忽略
func IterateNaluAnnexb(nals []byte, handler func(nal []byte)) error {
	pos, length := IterateNaluStartCode(nals, 0)
	if pos == -1 {
		return fmt.Errorf("%w. no start code found. len=%d", base.ErrInvalidFormat, len(nals))
	}
	for {
		start := pos + length
		next, nextLength := IterateNaluStartCode(nals, start)
		if next == -1 {
			if start < len(nals) {
				handler(nals[start:])
			}
			return nil
		}
		if next > start {
			handler(nals[start:next])
		}
		pos, length = next, nextLength
	}
}

// SplitNaluAnnexb 切分出annexb格式流中的所有nalu
func SplitNaluAnnexb(nals []byte) (nalList [][]byte, err error) {
	err = IterateNaluAnnexb(nals, func(nal []byte) {
		nalList = append(nalList, nal)
	})
	return
}

// IterateNaluAvcc 遍历4字节大端长度前缀格式的nalu流
func IterateNaluAvcc(nals []byte, handler func(nal []byte)) error {
	for pos := 0; pos != len(nals); {
		if len(nals)-pos < 4 {
			return fmt.Errorf("%w. avcc length prefix truncated. pos=%d, len=%d", base.ErrInvalidFormat, pos, len(nals))
		}
		length := int(bele.BeUint32(nals[pos:]))
		pos += 4
		if length > len(nals)-pos {
			return fmt.Errorf("%w. avcc nalu truncated. length=%d, remain=%d", base.ErrInvalidFormat, length, len(nals)-pos)
		}
		if length > 0 {
			handler(nals[pos : pos+length])
		}
		pos += length
	}
	return nil
}

func SplitNaluAvcc(nals []byte) (nalList [][]byte, err error) {
	err = IterateNaluAvcc(nals, func(nal []byte) {
		nalList = append(nalList, nal)
	})
	return
}

// JoinNaluAvcc 使用4字节大端长度前缀拼接nalu
func JoinNaluAvcc(naluList ...[]byte) []byte {
	n := len(naluList)
	if n == 0 {
		return nil
	}
	n *= 4
	for _, item := range naluList {
		n += len(item)
	}
	ret := make([]byte, n)

	pos := 0
	for _, item := range naluList {
		bele.BePutUint32(ret[pos:], uint32(len(item)))
		pos += 4
		copy(ret[pos:], item)
		pos += len(item)
	}
	return ret
}

// JoinNaluAnnexb 使用4字节start code拼接nalu
func JoinNaluAnnexb(naluList ...[]byte) []byte {
	var ret []byte
	for _, item := range naluList {
		ret = append(ret, NaluStartCode4...)
		ret = append(ret, item...)
	}
	return ret
}
