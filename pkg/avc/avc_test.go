// Copyright 2019, Chef.  All rights reserved.
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

func TestParseNaluType(t *testing.T) {
	assert.Equal(t, avc.NaluTypeIdrSlice, avc.ParseNaluType(0x65))
	assert.Equal(t, avc.NaluTypeSps, avc.ParseNaluType(0x67))
	assert.Equal(t, "PPS", avc.ParseNaluTypeReadable(0x68))
	assert.Equal(t, "unknown", avc.ParseNaluTypeReadable(0x1e))
	assert.Equal(t, "STAPA", avc.ParseNaluTypeReadable(0x78))
	assert.Equal(t, "unknown", avc.ParseNaluTypeReadable(0x00))

	assert.Equal(t, true, avc.IsVcl(avc.NaluTypeSlice))
	assert.Equal(t, true, avc.IsVcl(avc.NaluTypeIdrSlice))
	assert.Equal(t, false, avc.IsVcl(avc.NaluTypeAud))
	assert.Equal(t, true, avc.IsUnspecified(0))
	assert.Equal(t, true, avc.IsUnspecified(30))
	assert.Equal(t, true, avc.IsUnspecified(31))
	assert.Equal(t, false, avc.IsUnspecified(avc.NaluTypeFuA))
}

func TestIterateNaluStartCode(t *testing.T) {
	b := []byte{0, 0, 0, 1, 0x67, 0, 0, 1, 0x68, 0xAA, 0, 0, 0, 0, 1, 0x65}
	pos, length := avc.IterateNaluStartCode(b, 0)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 4, length)
	pos, length = avc.IterateNaluStartCode(b, 4)
	assert.Equal(t, 5, pos)
	assert.Equal(t, 3, length)
	pos, length = avc.IterateNaluStartCode(b, 8)
	assert.Equal(t, 11, pos)
	assert.Equal(t, 4, length)
	pos, length = avc.IterateNaluStartCode(b, 15)
	assert.Equal(t, -1, pos)
	assert.Equal(t, -1, length)
}

func TestSplitNaluAnnexb(t *testing.T) {
	b := []byte{0, 0, 0, 1, 0x67, 0x01, 0, 0, 1, 0x68, 0, 0, 0, 1, 0x65, 0x88, 0x84}
	nals, err := avc.SplitNaluAnnexb(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(nals))
	assert.Equal(t, []byte{0x67, 0x01}, nals[0])
	assert.Equal(t, []byte{0x68}, nals[1])
	assert.Equal(t, []byte{0x65, 0x88, 0x84}, nals[2])

	joined := avc.JoinNaluAnnexb(nals...)
	assert.Equal(t, 4*3+2+1+3, len(joined))
	again, err := avc.SplitNaluAnnexb(joined)
	assert.Equal(t, nil, err)
	assert.Equal(t, nals, again)

	_, err = avc.SplitNaluAnnexb([]byte{0x65, 0x88})
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))
}

func TestNaluAvcc(t *testing.T) {
	joined := avc.JoinNaluAvcc([]byte{0x67, 0x01}, []byte{0x65})
	assert.Equal(t, []byte{0, 0, 0, 2, 0x67, 0x01, 0, 0, 0, 1, 0x65}, joined)

	var nals [][]byte
	err := avc.IterateNaluAvcc(joined, func(nal []byte) {
		nals = append(nals, nal)
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(nals))
	assert.Equal(t, []byte{0x65}, nals[1])

	err = avc.IterateNaluAvcc(joined[:len(joined)-1], func(nal []byte) {})
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))
}
