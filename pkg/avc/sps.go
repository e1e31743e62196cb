// Copyright 2021, Chef.  All rights reserved.
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
	"github.com/q191201771/naza/pkg/nazabits"
)

// Sps 只保留日志和配置校验需要的字段
type Sps struct {
	ProfileIdc      uint8
	LevelIdc        uint8
	SpsId           uint32
	ChromaFormatIdc uint32
	Width           uint32
	Height          uint32
}

// ParseSps
//
// @param nal: 包含1字节nal header的SPS，可以带有防竞争字节
//
// 7.3.2.1.1 Sequence parameter set data syntax
func ParseSps(nal []byte) (sps Sps, err error) {
	if len(nal) < 4 {
		return sps, base.NewErrBufferTooSmall(4, len(nal))
	}
	if t := ParseNaluType(nal[0]); t != NaluTypeSps {
		return sps, base.NewErrInvalidFormat("nal_unit_type", uint32(t))
	}

	rbsp := Ebsp2Rbsp(nal[1:])
	br := nazabits.NewBitReader(rbsp)
	sps.ProfileIdc, _ = br.ReadBits8(8)
	_, _ = br.ReadBits8(8) // constraint_set_flags
	sps.LevelIdc, _ = br.ReadBits8(8)
	r := spsReader{br: &br}
	sps.SpsId = r.ue()
	if sps.SpsId >= 32 {
		return sps, base.NewErrInvalidFormat("seq_parameter_set_id", sps.SpsId)
	}

	sps.ChromaFormatIdc = 1
	if isHighProfile(sps.ProfileIdc) {
		sps.ChromaFormatIdc = r.ue()
		if sps.ChromaFormatIdc > 3 {
			return sps, base.NewErrInvalidFormat("chroma_format_idc", sps.ChromaFormatIdc)
		}
		if sps.ChromaFormatIdc == 3 {
			r.bit() // separate_colour_plane_flag
		}
		r.ue() // bit_depth_luma_minus8
		r.ue() // bit_depth_chroma_minus8
		r.bit() // qpprime_y_zero_transform_bypass_flag
		if r.bit() == 1 {
			n := 8
			if sps.ChromaFormatIdc == 3 {
				n = 12
			}
			for i := 0; i < n; i++ {
				if r.bit() == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					r.skipScalingList(size)
				}
			}
		}
	}

	r.ue() // log2_max_frame_num_minus4
	switch pocType := r.ue(); pocType {
	case 0:
		r.ue() // log2_max_pic_order_cnt_lsb_minus4
	case 1:
		r.bit()
		r.se()
		r.se()
		n := r.ue()
		if n > 255 {
			return sps, base.NewErrInvalidFormat("num_ref_frames_in_pic_order_cnt_cycle", n)
		}
		for i := uint32(0); i < n; i++ {
			r.se()
		}
	case 2:
	default:
		return sps, base.NewErrInvalidFormat("pic_order_cnt_type", pocType)
	}
	r.ue()  // max_num_ref_frames
	r.bit() // gaps_in_frame_num_value_allowed_flag
	widthMbs := r.ue() + 1
	heightMapUnits := r.ue() + 1
	frameMbsOnly := r.bit()
	if frameMbsOnly == 0 {
		r.bit() // mb_adaptive_frame_field_flag
	}
	r.bit() // direct_8x8_inference_flag

	var cropLeft, cropRight, cropTop, cropBottom uint32
	if r.bit() == 1 {
		cropLeft, cropRight, cropTop, cropBottom = r.ue(), r.ue(), r.ue(), r.ue()
	}
	if r.err != nil {
		return sps, fmt.Errorf("%w. sps truncated. err=%v", base.ErrInvalidFormat, r.err)
	}

	cropUnitX, cropUnitY := uint32(1), 2-frameMbsOnly
	if sps.ChromaFormatIdc == 1 || sps.ChromaFormatIdc == 2 {
		cropUnitX = 2
	}
	if sps.ChromaFormatIdc == 1 {
		cropUnitY *= 2
	}
	sps.Width = widthMbs*16 - (cropLeft+cropRight)*cropUnitX
	sps.Height = (2-frameMbsOnly)*heightMapUnits*16 - (cropTop+cropBottom)*cropUnitY
	return sps, nil
}

// Ebsp2Rbsp 去除 00 00 03 中的防竞争字节
func Ebsp2Rbsp(b []byte) []byte {
	ret := make([]byte, 0, len(b))
	zeros := 0
	for _, v := range b {
		if zeros >= 2 && v == 0x03 {
			zeros = 0
			continue
		}
		ret = append(ret, v)
		if v == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return ret
}

func isHighProfile(profile uint8) bool {
	switch profile {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

// spsReader 记录第一个错误，后续读取全部返回0
type spsReader struct {
	br  *nazabits.BitReader
	err error
}

func (r *spsReader) bit() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadBits8(1)
	r.err = err
	return uint32(v)
}

func (r *spsReader) ue() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadGolomb()
	r.err = err
	return v
}

func (r *spsReader) se() int32 {
	k := r.ue()
	if k&1 == 1 {
		return int32((k + 1) / 2)
	}
	return -int32(k / 2)
}

func (r *spsReader) skipScalingList(size int) {
	last, next := int32(8), int32(8)
	for j := 0; j < size && r.err == nil; j++ {
		if next != 0 {
			next = (last + r.se() + 256) % 256
		}
		if next != 0 {
			last = next
		}
	}
}
