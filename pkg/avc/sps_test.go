// Copyright 2021, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avc_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmse/pkg/avc"
	"github.com/q191201771/lalmse/pkg/base"

	"github.com/q191201771/naza/pkg/assert"
)

type bitWriter struct {
	b    []byte
	nbit uint
}

func (w *bitWriter) bits(v uint32, n uint) {
	for i := int(n) - 1; i >= 0; i-- {
		if w.nbit%8 == 0 {
			w.b = append(w.b, 0)
		}
		if (v>>uint(i))&1 == 1 {
			w.b[len(w.b)-1] |= 0x80 >> (w.nbit % 8)
		}
		w.nbit++
	}
}

func (w *bitWriter) ue(v uint32) {
	v++
	n := uint(0)
	for x := v; x > 1; x >>= 1 {
		n++
	}
	w.bits(0, n)
	w.bits(v, n+1)
}

// baseline 640x480
func makeBaselineSps() []byte {
	var w bitWriter
	w.bits(0x67, 8)
	w.bits(66, 8)
	w.bits(0xC0, 8)
	w.bits(30, 8)
	w.ue(0)  // sps_id
	w.ue(0)  // log2_max_frame_num_minus4
	w.ue(2)  // pic_order_cnt_type
	w.ue(1)  // max_num_ref_frames
	w.bits(0, 1)
	w.ue(39) // 40 mbs
	w.ue(29) // 30 mbs
	w.bits(1, 1)
	w.bits(1, 1)
	w.bits(0, 1) // frame_cropping_flag
	w.bits(0, 1) // vui
	w.bits(1, 1) // rbsp_stop_one_bit
	return w.b
}

// high 1920x1080，带裁剪
func makeHighSps() []byte {
	var w bitWriter
	w.bits(0x67, 8)
	w.bits(100, 8)
	w.bits(0, 8)
	w.bits(40, 8)
	w.ue(0)
	w.ue(1) // chroma_format_idc
	w.ue(0)
	w.ue(0)
	w.bits(0, 1)
	w.bits(0, 1) // seq_scaling_matrix_present_flag
	w.ue(4)
	w.ue(0) // pic_order_cnt_type
	w.ue(2)
	w.ue(4)
	w.bits(0, 1)
	w.ue(119)
	w.ue(67)
	w.bits(1, 1)
	w.bits(1, 1)
	w.bits(1, 1) // frame_cropping_flag
	w.ue(0)
	w.ue(0)
	w.ue(0)
	w.ue(4)
	w.bits(0, 1)
	w.bits(1, 1)
	return w.b
}

func TestParseSps(t *testing.T) {
	sps, err := avc.ParseSps(makeBaselineSps())
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(66), sps.ProfileIdc)
	assert.Equal(t, uint8(30), sps.LevelIdc)
	assert.Equal(t, uint32(640), sps.Width)
	assert.Equal(t, uint32(480), sps.Height)

	sps, err = avc.ParseSps(makeHighSps())
	assert.Equal(t, nil, err)
	assert.Equal(t, uint8(100), sps.ProfileIdc)
	assert.Equal(t, uint32(1), sps.ChromaFormatIdc)
	assert.Equal(t, uint32(1920), sps.Width)
	assert.Equal(t, uint32(1080), sps.Height)

	_, err = avc.ParseSps([]byte{0x68, 0x42, 0xC0, 0x1E})
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))
	_, err = avc.ParseSps([]byte{0x67, 0x42})
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))
	_, err = avc.ParseSps(makeBaselineSps()[:5])
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))
}

func TestEbsp2Rbsp(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 1, 0, 0, 0, 5}, avc.Ebsp2Rbsp([]byte{0, 0, 3, 1, 0, 0, 3, 0, 5}))
	assert.Equal(t, []byte{0, 3, 1}, avc.Ebsp2Rbsp([]byte{0, 3, 1}))
}
