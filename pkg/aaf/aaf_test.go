// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package aaf_test

import (
	"errors"
	"testing"

	"github.com/q191201771/lalmse/pkg/aaf"
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/packetizer"

	"github.com/q191201771/naza/pkg/assert"
)

var netConfig = base.NetworkConfig{
	DestMac:          base.MacAddr{0x91, 0xE0, 0xF0, 0x00, 0xFE, 0x00},
	SourceMac:        base.MacAddr{0x00, 0x1B, 0x21, 0x01, 0x02, 0x03},
	Priority:         3,
	Vid:              2,
	UniqueId:         1,
	PortTransmitRate: 1000000000,
}

func newPacketizer(t *testing.T, cfg base.AudioConfig) *aaf.Packetizer {
	p := aaf.NewPacketizer(base.DefaultPacketizerOption)
	assert.Equal(t, nil, p.SetNetworkConfig(&netConfig))
	assert.Equal(t, nil, p.SetAudioConfig(&cfg))
	assert.Equal(t, nil, p.Init())
	return p
}

func makeInput(frames int, cfg base.AudioConfig) []byte {
	b := make([]byte, frames*cfg.Channels*cfg.BytesPerSample)
	max := int64(1) << uint(cfg.SampleBitDepth-1)
	for i := 0; i < frames*cfg.Channels; i++ {
		v := int32((int64(i) * 2654435761) % max)
		if i%2 == 1 {
			v = -v
		}
		packetizer.WriteSample(b[i*cfg.BytesPerSample:], cfg.BytesPerSample, cfg.IsBigEndian, v)
	}
	return b
}

func TestPacketize(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	p := newPacketizer(t, cfg)

	info, err := p.GetAudioInfo()
	assert.Equal(t, nil, err)
	assert.Equal(t, base.AudioInfo{AvtpPacketSize: 66, SamplesPerPacket: 6, FrameIntervalTime: 125000}, info)

	in := makeInput(12, cfg)
	packet := make([]byte, avtp.EthFrameLenMax)
	processed := 0

	size, status, err := p.Packetize(packet, in, &processed, 1000)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, status)
	assert.Equal(t, 66, size)
	assert.Equal(t, 24, processed)

	pkt := avtp.Packet(packet[:size])
	assert.Equal(t, avtp.SubtypeAaf, pkt.Subtype())
	assert.Equal(t, true, pkt.Sv())
	assert.Equal(t, true, pkt.Tv())
	assert.Equal(t, uint8(0), pkt.SequenceNum())
	assert.Equal(t, uint32(1000), pkt.AvtpTimestamp())
	assert.Equal(t, avtp.AafFormatInt16Bit, pkt.AafFormat())
	assert.Equal(t, uint8(0x5), pkt.AafNsr())
	assert.Equal(t, uint16(2), pkt.AafChannels())
	assert.Equal(t, uint8(16), pkt.AafBitDepth())
	assert.Equal(t, uint16(24), pkt.StreamDataLength())
	assert.Equal(t, netConfig.StreamId(), pkt.StreamId())
	// 16位采样在线上为大端
	assert.Equal(t, in[1], packet[avtp.AvtpOffset+avtp.AafHeaderSize])
	assert.Equal(t, in[0], packet[avtp.AvtpOffset+avtp.AafHeaderSize+1])

	size, status, err = p.Packetize(packet, in, &processed, 1000)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, status)
	assert.Equal(t, 66, size)
	assert.Equal(t, uint8(1), pkt.SequenceNum())
	assert.Equal(t, uint32(126000), pkt.AvtpTimestamp())

	cbs, err := p.CalcCbs()
	assert.Equal(t, nil, err)
	expected, _ := packetizer.CalcCbsByFrames(1000000000, 66, 8000, 100)
	assert.Equal(t, expected, cbs)
}

func TestRoundTrip(t *testing.T) {
	cfgs := []base.AudioConfig{
		{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2},
		{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2, IsBigEndian: true},
		{SampleRate: 44100, Channels: 1, SampleBitDepth: 18, BytesPerSample: 4, IsBigEndian: true},
		{SampleRate: 96000, Channels: 8, SampleBitDepth: 20, BytesPerSample: 3, IsBigEndian: true},
		{SampleRate: 48000, Channels: 2, SampleBitDepth: 24, BytesPerSample: 3},
		{SampleRate: 48000, Channels: 6, SampleBitDepth: 24, BytesPerSample: 4},
		{SampleRate: 192000, Channels: 2, SampleBitDepth: 32, BytesPerSample: 4, IsBigEndian: true},
		{SampleRate: 8000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2, SamplesPerFrame: 4},
	}
	for _, cfg := range cfgs {
		talker := newPacketizer(t, cfg)
		listener := newPacketizer(t, cfg)
		info, err := talker.GetAudioInfo()
		assert.Equal(t, nil, err)

		in := makeInput(info.SamplesPerPacket*3, cfg)
		out := make([]byte, len(in))
		packet := make([]byte, avtp.EthFrameLenMax)
		processed := 0
		outProcessed := 0
		var n int
		for {
			size, status, err := talker.Packetize(packet, in, &processed, 0)
			assert.Equal(t, nil, err)
			var ts uint32
			rs, err := listener.Depacketize(out, &outProcessed, &ts, packet[:size])
			assert.Equal(t, nil, err)
			n++
			if status == base.StatusComplete {
				assert.Equal(t, base.StatusComplete, rs)
				break
			}
			assert.Equal(t, base.StatusContinue, rs)
		}
		assert.Equal(t, 3, n)
		assert.Equal(t, in, out)
		assert.Equal(t, uint64(0), listener.Release())
	}
}

func TestFlush(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	p := newPacketizer(t, cfg)

	in := makeInput(8, cfg)
	packet := make([]byte, avtp.EthFrameLenMax)
	processed := 0
	_, status, err := p.Packetize(packet, in, &processed, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, status)

	size, status, err := p.Packetize(packet, in, &processed, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusNotEnoughData, status)
	assert.Equal(t, 0, size)
	assert.Equal(t, len(in), processed)

	size, status, err = p.Packetize(packet, nil, nil, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, status)
	assert.Equal(t, avtp.EthFrameLenMin, size)
	pkt := avtp.Packet(packet[:size])
	assert.Equal(t, uint16(8), pkt.StreamDataLength())
	assert.Equal(t, uint32(125000), pkt.AvtpTimestamp())

	listener := newPacketizer(t, cfg)
	out := make([]byte, 8)
	outProcessed := 0
	var ts uint32
	rs, err := listener.Depacketize(out, &outProcessed, &ts, pkt)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, rs)
	assert.Equal(t, in[24:], out)
	assert.Equal(t, uint32(125000), ts)

	size, status, err = p.Packetize(packet, nil, nil, 0)
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, status)
	assert.Equal(t, 0, size)
}

func TestDepacketizeOverflow(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	talker := newPacketizer(t, cfg)
	listener := newPacketizer(t, cfg)

	in := makeInput(18, cfg)
	var packets [][]byte
	processed := 0
	for i := 0; i < 3; i++ {
		packet := make([]byte, avtp.EthFrameLenMax)
		size, _, err := talker.Packetize(packet, in, &processed, 0)
		assert.Equal(t, nil, err)
		packets = append(packets, packet[:size])
	}

	var ts uint32
	out := make([]byte, 30)
	outProcessed := 0
	rs, err := listener.Depacketize(out, &outProcessed, &ts, packets[0])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, rs)
	rs, err = listener.Depacketize(out, &outProcessed, &ts, packets[1])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusComplete, rs)
	assert.Equal(t, in[:30], out)

	out2 := make([]byte, 48)
	outProcessed = 0
	rs, err = listener.Depacketize(out2, &outProcessed, &ts, packets[2])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, rs)
	assert.Equal(t, 42, outProcessed)
	assert.Equal(t, in[30:], out2[:42])
}

func TestDepacketizeSmallBuffer(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	talker := newPacketizer(t, cfg)
	listener := newPacketizer(t, cfg)

	// 11个包，每包24字节
	in := makeInput(66, cfg)
	var packets [][]byte
	processed := 0
	for i := 0; i < 11; i++ {
		packet := make([]byte, avtp.EthFrameLenMax)
		size, _, err := talker.Packetize(packet, in, &processed, 0)
		assert.Equal(t, nil, err)
		packets = append(packets, packet[:size])
	}

	var ts uint32
	var got []byte
	for i := 0; i < 10; i++ {
		out := make([]byte, 16)
		outProcessed := 0
		rs, err := listener.Depacketize(out, &outProcessed, &ts, packets[i])
		assert.Equal(t, nil, err)
		assert.Equal(t, base.StatusComplete, rs)
		assert.Equal(t, 16, outProcessed)
		got = append(got, out...)
	}
	assert.Equal(t, in[:160], got)

	// 更大的buffer先取出排队的80字节，再写入本包
	out := make([]byte, 200)
	outProcessed := 0
	rs, err := listener.Depacketize(out, &outProcessed, &ts, packets[10])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, rs)
	assert.Equal(t, 104, outProcessed)
	got = append(got, out[:outProcessed]...)
	assert.Equal(t, in, got)
	assert.Equal(t, uint64(0), listener.Release())
}

func TestOffsetCalc(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	talker := newPacketizer(t, cfg)
	listener := newPacketizer(t, cfg)

	in := makeInput(12, cfg)
	packet := make([]byte, avtp.EthFrameLenMax)
	processed := 0
	size, _, err := talker.Packetize(packet, in, &processed, 1000000)
	assert.Equal(t, nil, err)

	listener.RequestOffsetCalc(0)

	// 没有有效时间戳的包被丢弃
	avtp.Packet(packet).SetTv(false)
	out := make([]byte, 1024)
	outProcessed := 0
	var ts uint32
	rs, err := listener.Depacketize(out, &outProcessed, &ts, packet[:size])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusDiscard, rs)

	avtp.Packet(packet).SetTv(true)
	rs, err = listener.Depacketize(out, &outProcessed, &ts, packet[:size])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, rs)
	assert.Equal(t, uint32(1000000), ts)
	assert.Equal(t, 192+24, outProcessed)
	assert.Equal(t, in[:24], out[192:216])

	// 后续的包不再计算偏移，tv为0时插值
	size, _, err = talker.Packetize(packet, in, &processed, 1000000)
	assert.Equal(t, nil, err)
	avtp.Packet(packet).SetTv(false)
	rs, err = listener.Depacketize(out, &outProcessed, &ts, packet[:size])
	assert.Equal(t, nil, err)
	assert.Equal(t, base.StatusContinue, rs)
	assert.Equal(t, uint32(1125000), ts)
	assert.Equal(t, 240, outProcessed)
}

func TestSequence(t *testing.T) {
	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	talker := newPacketizer(t, cfg)
	listener := newPacketizer(t, cfg)

	in := makeInput(6*300, cfg)
	packet := make([]byte, avtp.EthFrameLenMax)
	out := make([]byte, len(in))
	processed := 0
	outProcessed := 0
	for i := 0; i < 300; i++ {
		size, _, err := talker.Packetize(packet, in, &processed, 0)
		assert.Equal(t, nil, err)
		assert.Equal(t, uint8(i%256), avtp.Packet(packet).SequenceNum())
		if i == 100 {
			continue
		}
		var ts uint32
		_, err = listener.Depacketize(out, &outProcessed, &ts, packet[:size])
		assert.Equal(t, nil, err)
	}
	assert.Equal(t, uint64(1), listener.Release())
	assert.Equal(t, uint64(0), talker.Release())
}

func TestErrors(t *testing.T) {
	p := aaf.NewPacketizer(base.DefaultPacketizerOption)
	_, err := p.GetAudioInfo()
	assert.Equal(t, true, errors.Is(err, base.ErrNotConfigured))
	_, _, err = p.Packetize(make([]byte, 1522), make([]byte, 100), new(int), 0)
	assert.Equal(t, true, errors.Is(err, base.ErrNotConfigured))

	cfg := base.AudioConfig{SampleRate: 48000, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2}
	assert.Equal(t, nil, p.SetAudioConfig(&cfg))

	// 失败的配置不影响已有配置
	bad := []base.AudioConfig{
		{SampleRate: 12345, Channels: 2, SampleBitDepth: 16, BytesPerSample: 2},
		{SampleRate: 48000, Channels: 25, SampleBitDepth: 16, BytesPerSample: 2},
		{SampleRate: 48000, Channels: 2, SampleBitDepth: 24, BytesPerSample: 2},
		{SampleRate: 192000, Channels: 24, SampleBitDepth: 32, BytesPerSample: 4},
	}
	for _, item := range bad {
		err = p.SetAudioConfig(&item)
		assert.Equal(t, true, errors.Is(err, base.ErrInvalidConfig))
	}
	assert.Equal(t, true, errors.Is(p.SetAudioConfig(nil), base.ErrInvalidArgument))
	info, err := p.GetAudioInfo()
	assert.Equal(t, nil, err)
	assert.Equal(t, 66, info.AvtpPacketSize)

	assert.Equal(t, true, errors.Is(p.SetVideoConfig(&base.VideoConfig{}), base.ErrNotSupported))
	assert.Equal(t, true, errors.Is(p.SetMpeg2TsConfig(&base.Mpeg2TsConfig{}), base.ErrPermissionDenied))

	cvf := avtp.CopyTemplate(avtp.TemplateCvfH264)
	var ts uint32
	_, err = p.Depacketize(make([]byte, 100), new(int), &ts, cvf)
	assert.Equal(t, true, errors.Is(err, base.ErrInvalidFormat))

	_, err = p.Depacketize(make([]byte, 100), new(int), &ts, cvf[:30])
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))

	_, _, err = p.Packetize(make([]byte, 40), make([]byte, 100), new(int), 0)
	assert.Equal(t, true, errors.Is(err, base.ErrBufferTooSmall))
}
