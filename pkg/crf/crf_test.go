// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package crf_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/crf"

	"github.com/q191201771/naza/pkg/assert"
)

var netConfig = base.NetworkConfig{
	DestMac:          base.MacAddr{0x91, 0xE0, 0xF0, 0x00, 0xFE, 0x30},
	SourceMac:        base.MacAddr{0x00, 0x1B, 0x21, 0x0A, 0x0B, 0x0C},
	Priority:         3,
	Vid:              2,
	UniqueId:         0x10,
	PortTransmitRate: 1000000000,
}

func newCrf(t *testing.T) *crf.Packetizer {
	p := crf.NewPacketizer(base.DefaultPacketizerOption)
	assert.Equal(t, nil, p.SetNetworkConfig(&netConfig))
	assert.Equal(t, nil, p.SetAudioConfig(&base.AudioConfig{SampleRate: 48000}))
	assert.Equal(t, nil, p.Init())
	return p
}

func TestHelpers(t *testing.T) {
	timestamps := []uint64{0x0102030405060708, 0xFFFFFFFF00000001, 0}
	b := make([]byte, 30)
	assert.Equal(t, 24, crf.PutTimestamps(b, timestamps))
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b[:8])
	assert.Equal(t, timestamps, crf.Timestamps(b[:27]))

	fit, err := crf.FrameIntervalTime(48000, 160)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(3333333), fit)
	_, err = crf.FrameIntervalTime(0, 160)
	assert.Equal(t, true, errors.Is(err, base.ErrDivideByZero))
}

func TestRoundTrip(t *testing.T) {
	talker := newCrf(t)
	listener := newCrf(t)

	timestamps := make([]uint64, 14)
	for i := range timestamps {
		timestamps[i] = 0x1000000000 + uint64(i)*3333333
	}
	buffer := make([]byte, len(timestamps)*crf.TimestampSize+3)
	crf.PutTimestamps(buffer, timestamps)

	processed := 0
	var sizes []int
	var packets [][]byte
	// 每次调用最多6个时间戳，一次调用完成，剩余的由调用方继续传入
	for processed+crf.TimestampSize <= len(buffer) {
		packet := make([]byte, avtp.EthFrameLenMax)
		size, status, err := talker.Packetize(packet, buffer, &processed, 0)
		assert.Equal(t, nil, err)
		assert.Equal(t, base.StatusComplete, status)
		sizes = append(sizes, size)
		packets = append(packets, packet[:size])
	}
	assert.Equal(t, []int{86, 86, 64}, sizes)
	assert.Equal(t, len(buffer)-3, processed)

	// 末尾不足一个时间戳的数据被丢弃
	size, status, err := talker.Packetize(make([]byte, avtp.EthFrameLenMax), buffer, &processed, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, status)
	assert.Equal(t, 0, size)
	assert.Equal(t, len(buffer), processed)

	pkt := avtp.Packet(packets[0])
	assert.Equal(t, avtp.SubtypeCrf, pkt.Subtype())
	assert.Equal(t, avtp.CrfTypeAudioSample, pkt.CrfType())
	assert.Equal(t, uint32(48000), pkt.CrfBaseFrequency())
	assert.Equal(t, uint16(160), pkt.CrfTimestampInterval())
	assert.Equal(t, uint16(48), pkt.CrfDataLength())
	assert.Equal(t, timestamps[1], pkt.CrfTimestamp(1))
	assert.Equal(t, uint16(16), avtp.Packet(packets[2]).CrfDataLength())

	out := make([]byte, len(timestamps)*crf.TimestampSize)
	outProcessed := 0
	var ts uint32
	for i, packet := range packets {
		status, err := listener.Depacketize(out, &outProcessed, &ts, packet)
		assert.Equal(t, nil, err)
		assert.Equal(t, base.StatusComplete, status)
		assert.Equal(t, uint32(timestamps[i*6]), ts)
	}
	assert.Equal(t, timestamps, crf.Timestamps(out))

	info, err := listener.GetAudioInfo()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(3333333), info.FrameIntervalTime)
	assert.Equal(t, 86, info.AvtpPacketSize)
	assert.Equal(t, uint64(0), listener.Release())
}

func TestBufferTooSmall(t *testing.T) {
	talker := newCrf(t)
	listener := newCrf(t)

	buffer := make([]byte, 6*crf.TimestampSize)
	packet := make([]byte, avtp.EthFrameLenMax)
	size, _, err := talker.Packetize(packet, buffer, new(int), 0)
	assert.Equal(t, nil, err)

	var ts uint32
	processed := 8
	_, err = listener.Depacketize(make([]byte, 48), &processed, &ts, packet[:size])
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))
	assert.Equal(t, 8, processed)

	// crf_data_length超出包长
	avtp.Packet(packet).SetCrfDataLength(80)
	_, err = listener.Depacketize(make([]byte, 100), new(int), &ts, packet[:size])
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))
}

func TestConfig(t *testing.T) {
	p := crf.NewPacketizer(base.DefaultPacketizerOption)
	_, err := p.CalcCbs()
	assert.Equal(t, true, errors.Is(err, base.ErrNotConfigured))
	assert.Equal(t, true, errors.Is(p.SetAudioConfig(&base.AudioConfig{}), base.ErrInvalidConfig))
	assert.Equal(t, true, errors.Is(p.SetAudioConfig(&base.AudioConfig{SampleRate: 48000, SamplesPerFrame: 70000}), base.ErrInvalidConfig))
	assert.Equal(t, true, errors.Is(p.SetVideoConfig(&base.VideoConfig{}), base.ErrNotSupported))

	assert.Equal(t, nil, p.SetNetworkConfig(&netConfig))
	assert.Equal(t, nil, p.SetAudioConfig(&base.AudioConfig{SampleRate: 96000, SamplesPerFrame: 320}))
	info, err := p.GetAudioInfo()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(3333333), info.FrameIntervalTime)

	cbs, err := p.CalcCbs()
	assert.Equal(t, nil, err)
	assert.Equal(t, uint32(65535), cbs.IdleSlope+uint32(-cbs.SendSlope))
}
