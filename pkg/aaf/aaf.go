// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package aaf AVTP Audio Format，PCM音频
package aaf

import (
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/packetizer"
)

var _ base.IPacketizer = &Packetizer{}
var _ base.IOffsetCalculator = &Packetizer{}

type Packetizer struct {
	packetizer.AudioStream

	nsr        uint8
	wireFormat uint8
	wireBytes  int
}

func NewPacketizer(option base.PacketizerOption) *Packetizer {
	uk := base.GenUkAaf()
	Log.Infof("[%s] lifecycle new aaf packetizer.", uk)
	return &Packetizer{
		AudioStream: packetizer.NewAudioStream(uk, option),
	}
}

func (p *Packetizer) SetNetworkConfig(cfg *base.NetworkConfig) error {
	if err := p.ApplyNetworkConfig(cfg); err != nil {
		return err
	}
	if p.Configured() {
		p.rebuildTemplate()
	}
	return nil
}

func (p *Packetizer) SetAudioConfig(cfg *base.AudioConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil audio config")
	}
	nsr, ok := avtp.NsrFromSampleRate(cfg.SampleRate)
	if !ok {
		return base.NewErrInvalidConfig("sample_rate", cfg.SampleRate)
	}
	wireFormat := WireFormat(cfg.SampleBitDepth)
	wireBytes := avtp.AafWireBytes(wireFormat)
	layout := packetizer.AudioLayout{
		HeaderSize:     avtp.AafHeaderSize,
		WireFrameBytes: wireBytes * cfg.Channels,
	}

	timing, packetSize, err := p.PrepareAudioConfig(cfg, layout)
	if err != nil {
		return err
	}

	p.nsr = nsr
	p.wireFormat = wireFormat
	p.wireBytes = wireBytes
	p.CommitAudioConfig(cfg, layout, timing, packetSize)
	p.rebuildTemplate()
	return nil
}

// Packetize 每次调用最多输出一个包
//
// buffer为nil时将piece中剩余的采样作为一个短包发送
func (p *Packetizer) Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	src, ts, status, err := p.NextInput(packet, buffer, processed, timestamp)
	if src == nil || err != nil {
		return 0, status, err
	}

	cfg := p.AudioConfig()
	samples := p.Frames(src) * cfg.Channels
	_, packetSize, err := p.WritePacketHeader(packet, avtp.AafHeaderSize, samples*p.wireBytes, ts)
	if err != nil {
		return 0, status, err
	}

	payload := packet[avtp.AvtpOffset+avtp.AafHeaderSize:]
	shift := uint(p.wireBytes*8 - cfg.SampleBitDepth)
	bps := cfg.BytesPerSample
	for i := 0; i < samples; i++ {
		v := packetizer.ReadSample(src[i*bps:], bps, cfg.IsBigEndian, cfg.SampleBitDepth)
		packetizer.WriteSample(payload[i*p.wireBytes:], p.wireBytes, true, v<<shift)
	}
	return packetSize, status, nil
}

// Depacketize 解码一个包，写入buffer中processed位置
//
// 包中的声道数少于配置时，缺少的声道填0；多于配置时，多余的声道被忽略
func (p *Packetizer) Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	if err := p.CheckOutputArgs(processed, timestamp); err != nil {
		return base.StatusContinue, err
	}
	pkt, err := p.CheckPacket(packet, avtp.AafHeaderSize, avtp.SubtypeAaf)
	if err != nil {
		return base.StatusContinue, err
	}
	format := pkt.AafFormat()
	if format != avtp.AafFormatInt16Bit && format != avtp.AafFormatInt24Bit && format != avtp.AafFormatInt32Bit {
		err = base.NewErrInvalidFormat("aaf_format", uint32(format))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}
	pktChannels := int(pkt.AafChannels())
	if pktChannels == 0 {
		err = base.NewErrInvalidFormat("channels_per_frame", 0)
		p.Dump(err, packet)
		return base.StatusContinue, err
	}

	out, status := p.BeginOutput(pkt, buffer, processed, timestamp)
	if out == nil {
		return status, nil
	}

	cfg := p.AudioConfig()
	wireBytes := avtp.AafWireBytes(format)
	wireBits := wireBytes * 8
	payload := pkt.AafPayload()
	frames := len(payload) / (wireBytes * pktChannels)
	if maxFrames := p.MaxOutputFrames(); frames > maxFrames {
		frames = maxFrames
	}

	ch := cfg.Channels
	bps := cfg.BytesPerSample
	depth := cfg.SampleBitDepth
	for f := 0; f < frames; f++ {
		for c := 0; c < ch; c++ {
			var v int32
			if c < pktChannels {
				v = packetizer.ReadSample(payload[(f*pktChannels+c)*wireBytes:], wireBytes, true, wireBits)
				if wireBits >= depth {
					v >>= uint(wireBits - depth)
				} else {
					v <<= uint(depth - wireBits)
				}
			}
			packetizer.WriteSample(out[(f*ch+c)*bps:], bps, cfg.IsBigEndian, v)
		}
	}
	return p.FinishOutput(frames, buffer, processed), nil
}

func (p *Packetizer) rebuildTemplate() {
	cfg := p.AudioConfig()
	t := p.NewTemplate(avtp.TemplateAaf)
	t.SetAafFormat(p.wireFormat)
	t.SetAafNsr(p.nsr)
	t.SetAafChannels(uint16(cfg.Channels))
	t.SetAafBitDepth(uint8(cfg.SampleBitDepth))
	t.SetStreamDataLength(uint16(p.Timing().SamplesPerPacket * cfg.Channels * p.wireBytes))
	p.SetTemplate(t)
}

// WireFormat 位深对应的线上格式：16 -> INT_16BIT，18/20/24 -> INT_24BIT，32 -> INT_32BIT
func WireFormat(bitDepth int) uint8 {
	switch {
	case bitDepth <= 16:
		return avtp.AafFormatInt16Bit
	case bitDepth <= 24:
		return avtp.AafFormatInt24Bit
	}
	return avtp.AafFormatInt32Bit
}
