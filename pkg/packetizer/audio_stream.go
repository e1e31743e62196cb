// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

import (
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
)

// AudioStream AAF和IEC61883-6共用的部分
//
// 格式相关的包头模板和采样编解码由嵌入它的packetizer实现
type AudioStream struct {
	Stream
	Unsupported

	configured bool
	cfg        base.AudioConfig
	timing     AudioTiming
	packetSize int // 满包的以太网帧大小

	framer AudioFramer
	sink   AudioSink
	clock  AudioClock

	lastSeq uint8 // 最近一次接收的包序号，用于日志
}

func NewAudioStream(uniqueKey string, option base.PacketizerOption) AudioStream {
	return AudioStream{
		Stream: NewStream(uniqueKey, option),
	}
}

// AudioLayout SetAudioConfig校验通过后，由格式计算出的包布局
type AudioLayout struct {
	HeaderSize     int // AVTP头大小，不含以太网头
	WireFrameBytes int // 一帧(所有声道)在线上的字节数
}

// PrepareAudioConfig 校验配置，计算时序和满包大小，不修改当前状态
func (s *AudioStream) PrepareAudioConfig(cfg *base.AudioConfig, layout AudioLayout) (timing AudioTiming, packetSize int, err error) {
	if err = ValidateAudioConfig(cfg); err != nil {
		return
	}
	timing, err = DeriveAudioTiming(cfg.SampleRate, cfg.SamplesPerFrame, s.option.ClassIntervalFrames)
	if err != nil {
		return
	}
	packetSize, err = ClampPacketSize(avtp.AvtpOffset + layout.HeaderSize + timing.SamplesPerPacket*layout.WireFrameBytes)
	return
}

// CommitAudioConfig 应用已经校验过的配置，调用方随后需要重建包头模板
func (s *AudioStream) CommitAudioConfig(cfg *base.AudioConfig, layout AudioLayout, timing AudioTiming, packetSize int) {
	s.cfg = *cfg
	s.timing = timing
	s.packetSize = packetSize

	frameBytes := cfg.BytesPerSample * cfg.Channels
	maxFrames := MaxAudioFramesPerPacket(layout.HeaderSize, layout.WireFrameBytes)
	s.framer.Configure(frameBytes, timing.SamplesPerPacket, cfg.SampleRate)
	s.sink.Configure(maxFrames * frameBytes)
	s.clock.SetFrameIntervalTime(timing.FrameIntervalTime)
	s.configured = true

	Log.Infof("[%s] set audio config. rate=%d, channels=%d, depth=%d, bytes=%d, big_endian=%t, spp=%d, cif=%d, packet_size=%d",
		s.uniqueKey, cfg.SampleRate, cfg.Channels, cfg.SampleBitDepth, cfg.BytesPerSample, cfg.IsBigEndian,
		timing.SamplesPerPacket, timing.ClassIntervalFrames, packetSize)
}

func (s *AudioStream) Configured() bool {
	return s.configured
}

func (s *AudioStream) AudioConfig() base.AudioConfig {
	return s.cfg
}

func (s *AudioStream) Timing() AudioTiming {
	return s.timing
}

// Init 清空序号、piece和时间戳状态，保留配置
func (s *AudioStream) Init() error {
	s.ResetRuntime()
	s.framer.Reset()
	s.sink.Reset()
	s.clock.Reset()
	return nil
}

func (s *AudioStream) GetAudioInfo() (base.AudioInfo, error) {
	if !s.configured {
		return base.AudioInfo{}, base.ErrNotConfigured
	}
	return base.AudioInfo{
		AvtpPacketSize:    s.packetSize,
		SamplesPerPacket:  s.timing.SamplesPerPacket,
		FrameIntervalTime: s.timing.FrameIntervalTime,
	}, nil
}

func (s *AudioStream) CalcCbs() (base.CbsParams, error) {
	if !s.configured {
		return base.CbsParams{}, base.ErrNotConfigured
	}
	return CalcCbsByFrames(s.PortTransmitRate(), s.packetSize, s.timing.ClassIntervalFrames, s.option.CbsAdjustPercent)
}

func (s *AudioStream) RequestOffsetCalc(startTime uint32) {
	s.clock.RequestOffsetCalc(startTime)
}

// NextInput 取出本包要编码的输入数据
//
// @return src: 为nil时本次调用不发包，直接返回status
func (s *AudioStream) NextInput(packet []byte, buffer []byte, processed *int, timestamp uint32) (src []byte, ts uint32, status base.Status, err error) {
	if !s.configured {
		return nil, 0, base.StatusContinue, base.ErrNotConfigured
	}
	if len(packet) < s.packetSize {
		return nil, 0, base.StatusContinue, base.NewErrBufferTooSmall(s.packetSize, len(packet))
	}
	var dummy int
	if processed == nil {
		if buffer != nil {
			return nil, 0, base.StatusContinue, base.NewErrInvalidArgument("nil processed")
		}
		processed = &dummy
	}
	src, ts, status = s.framer.Next(buffer, processed, timestamp)
	return
}

// Frames src中的完整帧数
func (s *AudioStream) Frames(src []byte) int {
	return len(src) / (s.cfg.BytesPerSample * s.cfg.Channels)
}

// WritePacketHeader 写入包头，payloadSize 为本包实际的stream_data_length
func (s *AudioStream) WritePacketHeader(packet []byte, headerSize, payloadSize int, ts uint32) (avtp.Packet, int, error) {
	packetSize, err := ClampPacketSize(avtp.AvtpOffset + headerSize + payloadSize)
	if err != nil {
		return nil, 0, err
	}
	pkt, err := s.WriteHeader(packet, packetSize)
	if err != nil {
		return nil, 0, err
	}
	pkt.SetTv(true)
	pkt.SetAvtpTimestamp(ts)
	pkt.SetStreamDataLength(uint16(payloadSize))
	return pkt, packetSize, nil
}

// BeginOutput 接收方向，格式校验通过后调用
//
// 更新序号统计，输出上次剩余的数据，确定时间戳，需要时计算输出偏移
//
// @return out: 解码用的临时内存，为nil时直接返回status
func (s *AudioStream) BeginOutput(pkt avtp.Packet, buffer []byte, processed *int, timestamp *uint32) (out []byte, status base.Status) {
	s.TrackSeq(pkt)
	s.lastSeq = pkt.SequenceNum()

	// 没写完时本包解码后排在piece中剩余数据之后
	flushed := s.sink.Flush(buffer, processed)

	ts, status := s.clock.Resolve(pkt.Tv(), pkt.AvtpTimestamp())
	if status == base.StatusDiscard {
		return nil, status
	}
	*timestamp = ts

	if flushed && s.clock.NeedOffset() {
		status, offset, _ := s.clock.CalcOffsetIfNeeded(ts, s.cfg.SampleRate, s.cfg.BytesPerSample, s.cfg.Channels, len(buffer))
		if status != base.StatusContinue {
			return nil, status
		}
		if offset > *processed {
			for i := *processed; i < offset; i++ {
				buffer[i] = 0
			}
			*processed = offset
		}
	}
	return s.sink.Scratch(), base.StatusContinue
}

// MaxOutputFrames 临时内存能容纳的帧数
func (s *AudioStream) MaxOutputFrames() int {
	return len(s.sink.Scratch()) / (s.cfg.BytesPerSample * s.cfg.Channels)
}

// FinishOutput 将解码后的frames帧写入buffer
func (s *AudioStream) FinishOutput(frames int, buffer []byte, processed *int) base.Status {
	out := s.sink.Scratch()
	drop := s.sink.Dropped()
	status := s.sink.Deliver(out[:frames*s.cfg.BytesPerSample*s.cfg.Channels], buffer, processed)
	if s.sink.Dropped() != drop {
		Log.Warnf("[%s] output buffer full with pending data, drop packet. seq=%d, buffer=%d, pending=%d, total=%d",
			s.uniqueKey, s.lastSeq, len(buffer), s.sink.PieceLen(), s.sink.Dropped())
	}
	return status
}

// CheckOutputArgs
func (s *AudioStream) CheckOutputArgs(processed *int, timestamp *uint32) error {
	if !s.configured {
		return base.ErrNotConfigured
	}
	if processed == nil || timestamp == nil {
		return base.NewErrInvalidArgument("nil processed or timestamp")
	}
	return nil
}

// Release 返回累计的序号不连续次数
func (s *AudioStream) Release() uint64 {
	n := s.Stream.Release()
	if drop := s.sink.Dropped(); drop > 0 {
		Log.Infof("[%s] release. dropped packets=%d", s.uniqueKey, drop)
	}
	s.configured = false
	s.cfg = base.AudioConfig{}
	s.timing = AudioTiming{}
	s.packetSize = 0
	s.framer.Reset()
	s.sink.Reset()
	s.clock = AudioClock{}
	return n
}
