// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

// Package iec61883 IEC 61883-6 (AM824音频) 和 IEC 61883-4 (MPEG2-TS) 封装
package iec61883

import (
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/packetizer"
	"github.com/q191201771/naza/pkg/bele"
)

// AM824 label，高6位固定为 0b010000，低2位为vbl
const (
	Am824LabelMbla24 uint8 = 0x40
	Am824LabelMbla20 uint8 = 0x41
	Am824LabelMbla16 uint8 = 0x42

	am824LabelMask uint8 = 0xFC
)

const am824QuadletSize = 4

var _ base.IPacketizer = &Am824Packetizer{}
var _ base.IOffsetCalculator = &Am824Packetizer{}

// Am824Packetizer IEC 61883-6，每个采样一个quadlet：1字节label + 24位左对齐的大端采样
type Am824Packetizer struct {
	packetizer.AudioStream

	sfc   uint8
	label uint8
	dbc   uint8

	rxDbc      uint8
	rxDbcValid bool
}

func NewAm824Packetizer(option base.PacketizerOption) *Am824Packetizer {
	uk := base.GenUkIec61883_6()
	Log.Infof("[%s] lifecycle new iec61883-6 packetizer.", uk)
	return &Am824Packetizer{
		AudioStream: packetizer.NewAudioStream(uk, option),
	}
}

func (p *Am824Packetizer) Init() error {
	p.dbc = 0
	p.rxDbcValid = false
	return p.AudioStream.Init()
}

func (p *Am824Packetizer) SetNetworkConfig(cfg *base.NetworkConfig) error {
	if err := p.ApplyNetworkConfig(cfg); err != nil {
		return err
	}
	if p.Configured() {
		p.rebuildTemplate()
	}
	return nil
}

func (p *Am824Packetizer) SetAudioConfig(cfg *base.AudioConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil audio config")
	}
	sfc, ok := avtp.SfcFromSampleRate(cfg.SampleRate)
	if !ok {
		return base.NewErrInvalidConfig("sample_rate", cfg.SampleRate)
	}
	layout := packetizer.AudioLayout{
		HeaderSize:     avtp.Iec61883HeaderSize,
		WireFrameBytes: am824QuadletSize * cfg.Channels,
	}
	timing, packetSize, err := p.PrepareAudioConfig(cfg, layout)
	if err != nil {
		return err
	}

	p.sfc = sfc
	p.label = Am824Label(cfg.SampleBitDepth)
	p.CommitAudioConfig(cfg, layout, timing, packetSize)
	p.rebuildTemplate()
	return nil
}

func (p *Am824Packetizer) Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	src, ts, status, err := p.NextInput(packet, buffer, processed, timestamp)
	if src == nil || err != nil {
		return 0, status, err
	}

	cfg := p.AudioConfig()
	frames := p.Frames(src)
	samples := frames * cfg.Channels
	pkt, packetSize, err := p.WritePacketHeader(packet, avtp.StreamHeaderSize, avtp.CipHeaderSize+samples*am824QuadletSize, ts)
	if err != nil {
		return 0, status, err
	}
	pkt.SetCipDbc(p.dbc)
	p.dbc += uint8(frames)

	payload := packet[avtp.AvtpOffset+avtp.Iec61883HeaderSize:]
	bps := cfg.BytesPerSample
	for i := 0; i < samples; i++ {
		v := packetizer.ReadSample(src[i*bps:], bps, cfg.IsBigEndian, cfg.SampleBitDepth)
		bele.BePutUint32(payload[i*am824QuadletSize:], EncodeQuadlet(p.label, v, cfg.SampleBitDepth))
	}
	return packetSize, status, nil
}

// Depacketize 以包中的DBS作为每帧的声道数，缺少的声道填0，非音频label的quadlet按静音处理
//
// DBC只做记录，不连续时打印日志，不影响数据交付
func (p *Am824Packetizer) Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	if err := p.CheckOutputArgs(processed, timestamp); err != nil {
		return base.StatusContinue, err
	}
	pkt, err := p.CheckPacket(packet, avtp.Iec61883HeaderSize, avtp.Subtype61883)
	if err != nil {
		return base.StatusContinue, err
	}
	if pkt.CipFmt() != avtp.CipFmt61883_6 || pkt.CipSph() {
		err = base.NewErrInvalidFormat("cip_fmt", uint32(pkt.CipFmt()))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}
	dbs := int(pkt.CipDbs())
	if dbs == 0 {
		err = base.NewErrInvalidFormat("cip_dbs", 0)
		p.Dump(err, packet)
		return base.StatusContinue, err
	}

	payload := pkt.Iec61883Payload()
	frames := len(payload) / (dbs * am824QuadletSize)
	p.trackDbc(pkt.CipDbc(), frames)

	out, status := p.BeginOutput(pkt, buffer, processed, timestamp)
	if out == nil {
		return status, nil
	}
	if maxFrames := p.MaxOutputFrames(); frames > maxFrames {
		frames = maxFrames
	}

	cfg := p.AudioConfig()
	ch := cfg.Channels
	bps := cfg.BytesPerSample
	for f := 0; f < frames; f++ {
		for c := 0; c < ch; c++ {
			var v int32
			if c < dbs {
				v = DecodeQuadlet(bele.BeUint32(payload[(f*dbs+c)*am824QuadletSize:]), cfg.SampleBitDepth)
			}
			packetizer.WriteSample(out[(f*ch+c)*bps:], bps, cfg.IsBigEndian, v)
		}
	}
	return p.FinishOutput(frames, buffer, processed), nil
}

func (p *Am824Packetizer) Release() uint64 {
	p.dbc = 0
	p.rxDbcValid = false
	return p.AudioStream.Release()
}

func (p *Am824Packetizer) trackDbc(dbc uint8, frames int) {
	if p.rxDbcValid && dbc != p.rxDbc {
		Log.Debugf("[%s] dbc discontinuity. expected=%d, got=%d", p.UniqueKey(), p.rxDbc, dbc)
	}
	p.rxDbc = dbc + uint8(frames)
	p.rxDbcValid = true
}

func (p *Am824Packetizer) rebuildTemplate() {
	cfg := p.AudioConfig()
	t := p.NewTemplate(avtp.TemplateIec61883_6)
	t.SetCipDbs(uint8(cfg.Channels))
	t.SetCipFdf(p.sfc)
	t.SetStreamDataLength(uint16(avtp.CipHeaderSize + p.Timing().SamplesPerPacket*cfg.Channels*am824QuadletSize))
	p.SetTemplate(t)
}

// Am824Label 位深对应的MBLA label
func Am824Label(bitDepth int) uint8 {
	switch bitDepth {
	case 16:
		return Am824LabelMbla16
	case 18, 20:
		return Am824LabelMbla20
	}
	return Am824LabelMbla24
}

// EncodeQuadlet 采样左对齐到24位，32位采样截断低8位
func EncodeQuadlet(label uint8, v int32, bitDepth int) uint32 {
	var s uint32
	if bitDepth > 24 {
		s = uint32(v >> uint(bitDepth-24))
	} else {
		s = uint32(v << uint(24-bitDepth))
	}
	return uint32(label)<<24 | (s & 0xFFFFFF)
}

// DecodeQuadlet 取出24位采样，按bitDepth右对齐并符号扩展，非MBLA label返回0
func DecodeQuadlet(q uint32, bitDepth int) int32 {
	label := uint8(q >> 24)
	if label&am824LabelMask != Am824LabelMbla24 {
		return 0
	}
	s := packetizer.SignExtend(q&0xFFFFFF, 24)
	if bitDepth > 24 {
		return s << uint(bitDepth-24)
	}
	return s >> uint(24-bitDepth)
}
