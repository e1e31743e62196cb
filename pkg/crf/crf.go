// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package crf

import (
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/packetizer"
	"github.com/q191201771/naza/pkg/bele"
)

const (
	// DefaultTimestampInterval 48k采样率下每160个采样一个crf时间戳
	DefaultTimestampInterval = 160

	TimestampSize = 8

	baseFrequencyMax = 0x1FFFFFFF
)

var _ base.IPacketizer = &Packetizer{}

// Packetizer CRF audio sample类型，媒体buffer为连续的小端uint64时间戳
type Packetizer struct {
	packetizer.Stream
	packetizer.Unsupported

	configured        bool
	baseFrequency     uint32
	interval          uint16
	frameIntervalTime uint32
	packetSize        int
}

func NewPacketizer(option base.PacketizerOption) *Packetizer {
	uk := base.GenUkCrf()
	Log.Infof("[%s] lifecycle new crf packetizer.", uk)
	return &Packetizer{
		Stream: packetizer.NewStream(uk, option),
	}
}

func (p *Packetizer) Init() error {
	p.ResetRuntime()
	return nil
}

func (p *Packetizer) SetNetworkConfig(cfg *base.NetworkConfig) error {
	if err := p.ApplyNetworkConfig(cfg); err != nil {
		return err
	}
	if p.configured {
		p.rebuildTemplate()
	}
	return nil
}

// SetAudioConfig SampleRate 为base_frequency，SamplesPerFrame 为timestamp_interval
func (p *Packetizer) SetAudioConfig(cfg *base.AudioConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil audio config")
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > baseFrequencyMax {
		return base.NewErrInvalidConfig("sample_rate", cfg.SampleRate)
	}
	interval := cfg.SamplesPerFrame
	if interval == 0 {
		interval = DefaultTimestampInterval
	}
	if interval < 0 || interval > 0xFFFF {
		return base.NewErrInvalidConfig("samples_per_frame", cfg.SamplesPerFrame)
	}

	fit, err := FrameIntervalTime(uint32(cfg.SampleRate), uint16(interval))
	if err != nil {
		return err
	}
	packetSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + avtp.CrfHeaderSize + avtp.CrfDataMax*TimestampSize)
	if err != nil {
		return err
	}

	p.baseFrequency = uint32(cfg.SampleRate)
	p.interval = uint16(interval)
	p.frameIntervalTime = fit
	p.packetSize = packetSize
	p.configured = true
	p.rebuildTemplate()

	Log.Infof("[%s] set crf config. base_frequency=%d, timestamp_interval=%d, frame_interval_time=%d",
		p.UniqueKey(), p.baseFrequency, p.interval, fit)
	return nil
}

// GetAudioInfo SamplesPerPacket 为一个包中的时间戳个数
func (p *Packetizer) GetAudioInfo() (base.AudioInfo, error) {
	if !p.configured {
		return base.AudioInfo{}, base.ErrNotConfigured
	}
	return base.AudioInfo{
		AvtpPacketSize:    p.packetSize,
		SamplesPerPacket:  avtp.CrfDataMax,
		FrameIntervalTime: p.frameIntervalTime,
	}, nil
}

// CalcCbs 每秒 base_frequency / (timestamp_interval * 6) 个满包
func (p *Packetizer) CalcCbs() (base.CbsParams, error) {
	if !p.configured {
		return base.CbsParams{}, base.ErrNotConfigured
	}
	perPacket := uint32(p.interval) * avtp.CrfDataMax
	frames := int((p.baseFrequency + perPacket - 1) / perPacket)
	return packetizer.CalcCbsByFrames(p.PortTransmitRate(), p.packetSize, frames, p.Option().CbsAdjustPercent)
}

// Packetize 每次调用最多取 avtp.CrfDataMax 个时间戳，总是返回 StatusComplete
//
// processed小于len(buffer)时由调用方再次调用发送剩余的时间戳，timestamp参数不使用
func (p *Packetizer) Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	if !p.configured {
		return 0, base.StatusContinue, base.ErrNotConfigured
	}
	if buffer == nil {
		return 0, base.StatusComplete, nil
	}
	if processed == nil {
		return 0, base.StatusContinue, base.NewErrInvalidArgument("nil processed")
	}

	n := (len(buffer) - *processed) / TimestampSize
	if n > avtp.CrfDataMax {
		n = avtp.CrfDataMax
	}
	if n <= 0 {
		if remain := len(buffer) - *processed; remain > 0 {
			Log.Warnf("[%s] drop trailing partial crf timestamp. size=%d", p.UniqueKey(), remain)
			*processed = len(buffer)
		}
		return 0, base.StatusComplete, nil
	}

	packetSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + avtp.CrfHeaderSize + n*TimestampSize)
	if err != nil {
		return 0, base.StatusContinue, err
	}
	pkt, err := p.WriteHeader(packet, packetSize)
	if err != nil {
		return 0, base.StatusContinue, err
	}
	pkt.SetCrfDataLength(uint16(n * TimestampSize))
	for i, ts := range Timestamps(buffer[*processed : *processed+n*TimestampSize]) {
		pkt.SetCrfTimestamp(i, ts)
	}
	*processed += n * TimestampSize
	return packetSize, base.StatusComplete, nil
}

// Depacketize 将crf时间戳以小端uint64写入buffer，timestamp为第一个时间戳的低32位
func (p *Packetizer) Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	if !p.configured {
		return base.StatusContinue, base.ErrNotConfigured
	}
	if processed == nil || timestamp == nil {
		return base.StatusContinue, base.NewErrInvalidArgument("nil processed or timestamp")
	}
	pkt, err := p.CheckPacket(packet, avtp.CrfHeaderSize, avtp.SubtypeCrf)
	if err != nil {
		return base.StatusContinue, err
	}
	dl := int(pkt.CrfDataLength())
	if dl%TimestampSize != 0 || avtp.AvtpOffset+avtp.CrfHeaderSize+dl > len(packet) {
		err = base.NewErrInvalidFormat("crf_data_length", uint32(dl))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}
	if dl > len(buffer)-*processed {
		return base.StatusContinue, base.NewErrBufferTooSmall(dl, len(buffer)-*processed)
	}

	p.TrackSeq(pkt)

	if fit, err := FrameIntervalTime(pkt.CrfBaseFrequency(), pkt.CrfTimestampInterval()); err == nil {
		if fit != p.frameIntervalTime {
			Log.Debugf("[%s] frame interval time changed. %d -> %d", p.UniqueKey(), p.frameIntervalTime, fit)
			p.frameIntervalTime = fit
		}
	}

	n := dl / TimestampSize
	for i := 0; i < n; i++ {
		ts := pkt.CrfTimestamp(i)
		if i == 0 {
			*timestamp = uint32(ts)
		}
		putTimestamp(buffer[*processed:], ts)
		*processed += TimestampSize
	}
	return base.StatusComplete, nil
}

func (p *Packetizer) Release() uint64 {
	n := p.Stream.Release()
	p.configured = false
	p.baseFrequency = 0
	p.interval = 0
	p.frameIntervalTime = 0
	return n
}

func (p *Packetizer) rebuildTemplate() {
	t := p.NewTemplate(avtp.TemplateCrf)
	t.SetCrfBaseFrequency(p.baseFrequency)
	t.SetCrfTimestampInterval(p.interval)
	p.SetTemplate(t)
}

// FrameIntervalTime 1e9 * timestamp_interval / base_frequency，单位纳秒
func FrameIntervalTime(baseFrequency uint32, interval uint16) (uint32, error) {
	if baseFrequency == 0 {
		return 0, base.ErrDivideByZero
	}
	return uint32(uint64(1000000000) * uint64(interval) / uint64(baseFrequency)), nil
}

// PutTimestamps 将时间戳以小端uint64写入b，返回写入的字节数
func PutTimestamps(b []byte, timestamps []uint64) int {
	n := 0
	for _, ts := range timestamps {
		if len(b)-n < TimestampSize {
			break
		}
		putTimestamp(b[n:], ts)
		n += TimestampSize
	}
	return n
}

// Timestamps 解析b中连续的小端uint64，末尾不足8字节的部分忽略
func Timestamps(b []byte) []uint64 {
	ret := make([]uint64, 0, len(b)/TimestampSize)
	for i := 0; i+TimestampSize <= len(b); i += TimestampSize {
		ret = append(ret, uint64(bele.LeUint32(b[i+4:]))<<32|uint64(bele.LeUint32(b[i:])))
	}
	return ret
}

func putTimestamp(b []byte, ts uint64) {
	bele.LePutUint32(b, uint32(ts))
	bele.LePutUint32(b[4:], uint32(ts>>32))
}
