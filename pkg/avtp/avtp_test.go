// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package avtp_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
)

func TestCopyTemplate(t *testing.T) {
	golden := []struct {
		typ     avtp.TemplateType
		size    int
		subtype uint8
	}{
		{avtp.TemplateIec61883_4, 18 + 32, avtp.Subtype61883},
		{avtp.TemplateIec61883_6, 18 + 32, avtp.Subtype61883},
		{avtp.TemplateAaf, 18 + 24, avtp.SubtypeAaf},
		{avtp.TemplateCvfH264, 18 + 28, avtp.SubtypeCvf},
		{avtp.TemplateCvfH264D13, 18 + 24, avtp.SubtypeCvf},
		{avtp.TemplateCvfMjpeg, 18 + 32, avtp.SubtypeCvf},
		{avtp.TemplateCrf, 18 + 20, avtp.SubtypeCrf},
	}
	for _, item := range golden {
		b := avtp.CopyTemplate(item.typ)
		assert.Equal(t, item.size, len(b))
		p := avtp.Packet(b)
		assert.Equal(t, item.subtype, p.Subtype())
		assert.Equal(t, true, p.Sv())
		assert.Equal(t, uint8(0), p.Version())
		assert.Equal(t, avtp.TpidVlan, p.Tpid())
		assert.Equal(t, avtp.EtherTypeAvtp, p.EtherType())
	}

	// 每次返回独立内存
	a := avtp.CopyTemplate(avtp.TemplateAaf)
	a[avtp.AvtpOffset] = 0xFF
	assert.Equal(t, avtp.SubtypeAaf, avtp.Packet(avtp.CopyTemplate(avtp.TemplateAaf)).Subtype())

	assert.Equal(t, nil, avtp.CopyTemplate(avtp.TemplateType(100)))
}

func TestTemplateIec61883(t *testing.T) {
	p := avtp.Packet(avtp.CopyTemplate(avtp.TemplateIec61883_6))
	assert.Equal(t, uint8(1), p.Tag())
	assert.Equal(t, uint8(31), p.Channel())
	assert.Equal(t, uint8(0xA), p.Tcode())
	assert.Equal(t, uint8(0), p.Sy())
	assert.Equal(t, uint8(0), p.CipQi1())
	assert.Equal(t, uint8(63), p.CipSid())
	assert.Equal(t, uint8(2), p.CipQi2())
	assert.Equal(t, uint8(0x10), p.CipFmt())
	assert.Equal(t, false, p.CipSph())
	assert.Equal(t, uint16(0xFFFF), p.CipSyt())

	p = avtp.Packet(avtp.CopyTemplate(avtp.TemplateIec61883_4))
	assert.Equal(t, uint8(0x20), p.CipFmt())
	assert.Equal(t, uint8(6), p.CipDbs())
	assert.Equal(t, uint8(3), p.CipFn())
	assert.Equal(t, uint8(0), p.CipQpc())
	assert.Equal(t, true, p.CipSph())

	// 相邻字段互不影响
	p.SetCipQpc(7)
	assert.Equal(t, uint8(3), p.CipFn())
	assert.Equal(t, true, p.CipSph())
	p.SetCipQpc(0)
	p.SetChannel(0xFF)
	assert.Equal(t, uint8(0x3F), p.Channel())
	assert.Equal(t, uint8(1), p.Tag())
}

func TestEthHeader(t *testing.T) {
	b := make([]byte, avtp.EthHeaderSize)
	dst := base.MacAddr{0x91, 0xE0, 0xF0, 0x00, 0x0E, 0x80}
	src := base.MacAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	avtp.PutEthHeader(b, dst, src, 0x1ABC, 0xFB)

	p := avtp.Packet(b)
	assert.Equal(t, dst, p.DstMac())
	assert.Equal(t, src, p.SrcMac())
	assert.Equal(t, uint8(3), p.Pcp())
	assert.Equal(t, false, p.Cfi())
	assert.Equal(t, uint16(0xABC), p.Vid())
	assert.Equal(t, []byte{0x81, 0x00, 0x6A, 0xBC, 0x22, 0xF0}, b[12:])

	tci, err := avtp.ParseVlanTci(b)
	assert.Equal(t, nil, err)
	assert.Equal(t, avtp.VlanTci{Pcp: 3, Cfi: 0, Vid: 0xABC}, tci)

	_, err = avtp.ParseVlanTci(b[:10])
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))
}

func TestCommonHeader(t *testing.T) {
	p := avtp.Packet(avtp.CopyTemplate(avtp.TemplateAaf))
	p.SetSequenceNum(200)
	p.SetTv(true)
	p.SetTu(true)
	p.SetMr(true)
	p.SetStreamId(0x0011223344550001)
	p.SetAvtpTimestamp(0xDEADBEEF)
	p.SetStreamDataLength(0x0123)

	assert.Equal(t, []byte{0x02, 0x89, 200, 0x01}, []byte(p[avtp.AvtpOffset:avtp.AvtpOffset+4]))
	assert.Equal(t, uint64(0x0011223344550001), p.StreamId())

	h, err := avtp.ParseCommonHeader(p)
	assert.Equal(t, nil, err)
	assert.Equal(t, avtp.CommonHeader{
		Subtype:          avtp.SubtypeAaf,
		Sv:               1,
		Version:          0,
		Mr:               1,
		Tv:               1,
		SequenceNum:      200,
		Tu:               1,
		StreamId:         0x0011223344550001,
		AvtpTimestamp:    0xDEADBEEF,
		StreamDataLength: 0x0123,
	}, h)

	_, err = avtp.ParseCommonHeader(p[:30])
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))
}

func TestAafFields(t *testing.T) {
	p := avtp.Packet(avtp.CopyTemplate(avtp.TemplateAaf))
	p.SetAafFormat(avtp.AafFormatInt24Bit)
	p.SetAafNsr(0x5)
	p.SetAafChannels(0x3FF)
	p.SetAafBitDepth(20)
	p.SetAafSp(true)
	p.SetAafEvt(0xF)

	assert.Equal(t, avtp.AafFormatInt24Bit, p.AafFormat())
	assert.Equal(t, uint8(5), p.AafNsr())
	assert.Equal(t, uint16(0x3FF), p.AafChannels())
	assert.Equal(t, uint8(20), p.AafBitDepth())
	assert.Equal(t, true, p.AafSp())
	assert.Equal(t, uint8(0xF), p.AafEvt())
	assert.Equal(t, []byte{0x03, 0x53, 0xFF, 20}, []byte(p[avtp.AvtpOffset+16:avtp.AvtpOffset+20]))

	p.SetAafChannels(8)
	assert.Equal(t, uint8(5), p.AafNsr())
	assert.Equal(t, uint16(8), p.AafChannels())

	assert.Equal(t, 2, avtp.AafWireBytes(avtp.AafFormatInt16Bit))
	assert.Equal(t, 3, avtp.AafWireBytes(avtp.AafFormatInt24Bit))
	assert.Equal(t, 4, avtp.AafWireBytes(avtp.AafFormatInt32Bit))
	assert.Equal(t, 0, avtp.AafWireBytes(avtp.AafFormatUser))
}

func TestNsr(t *testing.T) {
	nsr, ok := avtp.NsrFromSampleRate(48000)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint8(5), nsr)
	rate, ok := avtp.SampleRateFromNsr(nsr)
	assert.Equal(t, true, ok)
	assert.Equal(t, 48000, rate)

	_, ok = avtp.NsrFromSampleRate(11025)
	assert.Equal(t, false, ok)
	_, ok = avtp.SampleRateFromNsr(0)
	assert.Equal(t, false, ok)

	sfc, ok := avtp.SfcFromSampleRate(44100)
	assert.Equal(t, true, ok)
	assert.Equal(t, uint8(1), sfc)
}

func TestCvfFields(t *testing.T) {
	p := avtp.Packet(avtp.CopyTemplate(avtp.TemplateCvfH264))
	assert.Equal(t, avtp.CvfFormatRfc, p.CvfFormat())
	assert.Equal(t, avtp.CvfFormatSubtypeH264, p.CvfFormatSubtype())

	p.SetCvfM(true)
	p.SetCvfPtv(true)
	p.SetCvfEvt(0x3)
	p.SetCvfH264Timestamp(12345678)
	assert.Equal(t, uint8(0x33), p[avtp.AvtpOffset+22])
	assert.Equal(t, uint32(12345678), p.CvfH264Timestamp())
	p.SetCvfM(false)
	assert.Equal(t, true, p.CvfPtv())
	assert.Equal(t, false, p.CvfM())

	mj := avtp.Packet(avtp.CopyTemplate(avtp.TemplateCvfMjpeg))
	assert.Equal(t, avtp.CvfFormatSubtypeMjpeg, mj.CvfFormatSubtype())
}

func TestCrfFields(t *testing.T) {
	b := append(avtp.CopyTemplate(avtp.TemplateCrf), make([]byte, 16)...)
	p := avtp.Packet(b)
	assert.Equal(t, avtp.CrfTypeAudioSample, p.CrfType())

	p.SetCrfPull(5)
	p.SetCrfBaseFrequency(48000)
	p.SetCrfDataLength(16)
	p.SetCrfTimestampInterval(160)
	p.SetCrfTimestamp(0, 0x0102030405060708)
	p.SetCrfTimestamp(1, 0xFFFFFFFF00000001)
	p.SetCrfFs(true)

	assert.Equal(t, uint8(5), p.CrfPull())
	assert.Equal(t, uint32(48000), p.CrfBaseFrequency())
	assert.Equal(t, uint16(16), p.CrfDataLength())
	assert.Equal(t, uint16(160), p.CrfTimestampInterval())
	assert.Equal(t, uint64(0x0102030405060708), p.CrfTimestamp(0))
	assert.Equal(t, uint64(0xFFFFFFFF00000001), p.CrfTimestamp(1))
	assert.Equal(t, true, p.CrfFs())
	assert.Equal(t, false, p.CrfTu())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b[avtp.AvtpOffset+20:avtp.AvtpOffset+28])

	p.SetCrfBaseFrequency(0xFFFFFFFF)
	assert.Equal(t, uint8(5), p.CrfPull())
	assert.Equal(t, uint32(0x1FFFFFFF), p.CrfBaseFrequency())
}

func TestPayloadBounds(t *testing.T) {
	b := append(avtp.CopyTemplate(avtp.TemplateAaf), 1, 2, 3, 4)
	p := avtp.Packet(b)
	p.SetStreamDataLength(4)
	assert.Equal(t, []byte{1, 2, 3, 4}, p.AafPayload())

	// stream_data_length 超过实际包长时截断
	p.SetStreamDataLength(100)
	assert.Equal(t, []byte{1, 2, 3, 4}, p.AafPayload())

	assert.Equal(t, true, errors.Is(p.Check(avtp.Iec61883HeaderSize+10), base.ErrBufferTooSmall))
	assert.Equal(t, nil, p.Check(avtp.AafHeaderSize))
}
