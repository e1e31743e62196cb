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
	"github.com/q191201771/naza/pkg/bele"
)

const (
	AudioChannelsMax = 24
	nsPerSecond      = 1000000000
)

// ValidateAudioConfig AAF和IEC61883-6共用的音频配置检查
func ValidateAudioConfig(cfg *base.AudioConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil audio config")
	}
	if cfg.SampleRate <= 0 {
		return base.NewErrInvalidConfig("sample_rate", cfg.SampleRate)
	}
	if cfg.Channels < 1 || cfg.Channels > AudioChannelsMax {
		return base.NewErrInvalidConfig("channels", cfg.Channels)
	}
	switch cfg.SampleBitDepth {
	case 16, 18, 20, 24, 32:
	default:
		return base.NewErrInvalidConfig("sample_bit_depth", cfg.SampleBitDepth)
	}
	switch cfg.BytesPerSample {
	case 2, 3, 4:
	default:
		return base.NewErrInvalidConfig("bytes_per_sample", cfg.BytesPerSample)
	}
	if cfg.BytesPerSample*8 < cfg.SampleBitDepth {
		return base.NewErrInvalidConfig("bytes_per_sample", cfg.BytesPerSample)
	}
	if cfg.SamplesPerFrame < 0 {
		return base.NewErrInvalidConfig("samples_per_frame", cfg.SamplesPerFrame)
	}
	return nil
}

// ReadSample 读取一个右对齐的采样，并按位深做符号扩展
func ReadSample(b []byte, bytesPerSample int, isBigEndian bool, bitDepth int) int32 {
	var u uint32
	switch bytesPerSample {
	case 2:
		if isBigEndian {
			u = uint32(bele.BeUint16(b))
		} else {
			u = uint32(b[0]) | uint32(b[1])<<8
		}
	case 3:
		if isBigEndian {
			u = bele.BeUint24(b)
		} else {
			u = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		}
	case 4:
		if isBigEndian {
			u = bele.BeUint32(b)
		} else {
			u = bele.LeUint32(b)
		}
	}
	return SignExtend(u, bitDepth)
}

// WriteSample 将采样的低 bytesPerSample*8 位按指定字节序写入b
func WriteSample(b []byte, bytesPerSample int, isBigEndian bool, v int32) {
	u := uint32(v)
	switch bytesPerSample {
	case 2:
		if isBigEndian {
			bele.BePutUint16(b, uint16(u))
		} else {
			b[0], b[1] = byte(u), byte(u>>8)
		}
	case 3:
		if isBigEndian {
			bele.BePutUint24(b, u&0xFFFFFF)
		} else {
			b[0], b[1], b[2] = byte(u), byte(u>>8), byte(u>>16)
		}
	case 4:
		if isBigEndian {
			bele.BePutUint32(b, u)
		} else {
			bele.LePutUint32(b, u)
		}
	}
}

// SignExtend 取u的低bits位，视为有符号数扩展到32位
func SignExtend(u uint32, bits int) int32 {
	if bits >= 32 {
		return int32(u)
	}
	shift := uint(32 - bits)
	return int32(u<<shift) >> shift
}

// AudioTiming 由采样率推导出的发送节奏
type AudioTiming struct {
	SamplesPerPacket    int
	ClassIntervalFrames int
	FrameIntervalTime   uint32 // 单位纳秒
}

// DeriveAudioTiming
//
// @param samplesPerFrame:            为0时使用 ceil(sampleRate / defaultClassIntervalFrames)
// @param defaultClassIntervalFrames: 每秒的class interval数量，class A为8000
func DeriveAudioTiming(sampleRate, samplesPerFrame, defaultClassIntervalFrames int) (AudioTiming, error) {
	if sampleRate <= 0 {
		return AudioTiming{}, base.NewErrInvalidConfig("sample_rate", sampleRate)
	}
	spp := samplesPerFrame
	if spp == 0 {
		if defaultClassIntervalFrames <= 0 {
			return AudioTiming{}, base.NewErrInvalidConfig("class_interval_frames", defaultClassIntervalFrames)
		}
		spp = ceilDiv(sampleRate, defaultClassIntervalFrames)
	}
	cif := ceilDiv(sampleRate, spp)
	return AudioTiming{
		SamplesPerPacket:    spp,
		ClassIntervalFrames: cif,
		FrameIntervalTime:   uint32(nsPerSecond / cif),
	}, nil
}

// FrameTimestamp 以ts为第0帧的时间戳，计算第frameIndex帧的时间戳，frameIndex可以为负
func FrameTimestamp(ts uint32, frameIndex int, sampleRate int) uint32 {
	if sampleRate <= 0 {
		return ts
	}
	return ts + uint32(int64(frameIndex)*nsPerSecond/int64(sampleRate))
}

// AudioClock 接收方向的时间戳维护
//
// tv为0的包使用上一个时间戳加上 FrameIntervalTime 插值得到
type AudioClock struct {
	frameIntervalTime uint32

	lastTimestamp uint32
	hasTimestamp  bool

	needOffset bool
	startTime  uint32
}

func (c *AudioClock) SetFrameIntervalTime(t uint32) {
	c.frameIntervalTime = t
}

// RequestOffsetCalc 流开始时调用，下一个有效时间戳的包会计算在输出buffer中的偏移
func (c *AudioClock) RequestOffsetCalc(startTime uint32) {
	c.needOffset = true
	c.startTime = startTime
}

func (c *AudioClock) NeedOffset() bool {
	return c.needOffset
}

// Resolve 得到当前包的时间戳
//
// @return status: 没有可用的时间戳并且需要计算偏移时返回 StatusDiscard
func (c *AudioClock) Resolve(tv bool, ts uint32) (uint32, base.Status) {
	if tv {
		c.lastTimestamp = ts
		c.hasTimestamp = true
		return ts, base.StatusContinue
	}
	if c.hasTimestamp {
		c.lastTimestamp += c.frameIntervalTime
		return c.lastTimestamp, base.StatusContinue
	}
	if c.needOffset {
		return 0, base.StatusDiscard
	}
	return 0, base.StatusContinue
}

// CalcOffsetIfNeeded 需要计算偏移时，返回该包数据在输出buffer中的起始位置
//
// 计算成功后清除请求标志，Skip和Discard时保留，等待下一个包
func (c *AudioClock) CalcOffsetIfNeeded(ts uint32, sampleRate, sampleBytes, channels, bufferSize int) (base.Status, int, bool) {
	if !c.needOffset {
		return base.StatusContinue, 0, false
	}
	status, offset := CalcAudioOffset(ts, c.startTime, sampleRate, sampleBytes, channels, bufferSize)
	if status == base.StatusContinue {
		c.needOffset = false
	}
	return status, offset, true
}

func (c *AudioClock) Reset() {
	*c = AudioClock{frameIntervalTime: c.frameIntervalTime}
}

// AudioFramer 发送方向，将输入buffer切分成每包 samplesPerPacket 帧的数据块
//
// 跨调用剩余的不足一个包的数据保存在piece中
type AudioFramer struct {
	piece       Piece
	pieceTs     uint32
	frameBytes  int
	packetBytes int
	sampleRate  int
}

// Configure
//
// @param frameBytes: 输入中一帧(所有声道各一个采样)的字节数
func (f *AudioFramer) Configure(frameBytes, framesPerPacket, sampleRate int) {
	f.frameBytes = frameBytes
	f.packetBytes = frameBytes * framesPerPacket
	f.sampleRate = sampleRate
	f.piece.Resize(f.packetBytes)
}

// Next 取出下一个包的输入数据
//
// buffer为nil时表示flush，返回piece中剩余的完整帧
//
// @return src:    本包的输入数据，在下一次调用前有效；为nil时表示本次不需要发包
// @return ts:     本包第一帧的时间戳
// @return status: StatusContinue 输入还有剩余；StatusComplete 输入已消费完；StatusNotEnoughData 数据已保存到piece
func (f *AudioFramer) Next(buffer []byte, processed *int, timestamp uint32) (src []byte, ts uint32, status base.Status) {
	if buffer == nil {
		n := f.piece.Len() / f.frameBytes * f.frameBytes
		if n == 0 {
			f.piece.Reset()
			return nil, 0, base.StatusComplete
		}
		src = f.piece.Bytes()[:n]
		f.piece.Reset()
		return src, f.pieceTs, base.StatusComplete
	}

	pos := *processed
	if pos > len(buffer) {
		pos = len(buffer)
	}
	remain := len(buffer) - pos
	frameIndex := pos / f.frameBytes

	if f.piece.Len()+remain < f.packetBytes {
		if f.piece.Len() == 0 {
			f.pieceTs = FrameTimestamp(timestamp, frameIndex, f.sampleRate)
		}
		f.piece.Append(buffer[pos:])
		*processed = len(buffer)
		return nil, 0, base.StatusNotEnoughData
	}

	if f.piece.Len() > 0 {
		need := f.packetBytes - f.piece.Len()
		f.piece.Append(buffer[pos : pos+need])
		*processed = pos + need
		src = f.piece.Bytes()
		ts = f.pieceTs
		f.piece.Reset()
	} else {
		src = buffer[pos : pos+f.packetBytes]
		*processed = pos + f.packetBytes
		ts = FrameTimestamp(timestamp, frameIndex, f.sampleRate)
	}

	if *processed == len(buffer) {
		status = base.StatusComplete
	} else {
		status = base.StatusContinue
	}
	return
}

func (f *AudioFramer) PieceLen() int {
	return f.piece.Len()
}

func (f *AudioFramer) Reset() {
	f.piece.Reset()
	f.pieceTs = 0
}

// AudioSink 接收方向，将解码后的数据写入调用方buffer，放不下的部分保存到piece中
//
// piece容量为两个包，调用方buffer小于一个包时数据在piece中排队，piece放不下时才丢包
type AudioSink struct {
	piece   Piece
	scratch []byte
	drop    uint64
}

// Configure
//
// @param packetBytes: 一个包解码后的最大字节数
func (s *AudioSink) Configure(packetBytes int) {
	s.piece.Resize(2 * packetBytes)
	if cap(s.scratch) < packetBytes {
		s.scratch = make([]byte, packetBytes)
	}
	s.scratch = s.scratch[:packetBytes]
}

// Scratch 解码用的临时内存，大小为一个包解码后的最大字节数
func (s *AudioSink) Scratch() []byte {
	return s.scratch
}

// Flush 先把上次剩余的数据写入buffer
//
// @return ok: piece中的数据全部写完
func (s *AudioSink) Flush(buffer []byte, processed *int) (ok bool) {
	if s.piece.Len() == 0 {
		return true
	}
	*processed += s.piece.Drain(buffer[*processed:])
	return s.piece.Len() == 0
}

// Deliver 写入本包解码后的数据
//
// piece中还有数据时本包整体排在其后，返回 StatusComplete；piece剩余空间不够时丢弃本包并计数
func (s *AudioSink) Deliver(data []byte, buffer []byte, processed *int) base.Status {
	if s.piece.Len() > 0 {
		if s.piece.Free() < len(data) {
			s.drop++
			return base.StatusComplete
		}
		s.piece.Append(data)
		return base.StatusComplete
	}

	n := copy(buffer[*processed:], data)
	*processed += n
	if n < len(data) {
		s.piece.Append(data[n:])
	}
	if *processed == len(buffer) {
		return base.StatusComplete
	}
	return base.StatusContinue
}

func (s *AudioSink) PieceLen() int {
	return s.piece.Len()
}

// Dropped piece放不下而丢弃的包数
func (s *AudioSink) Dropped() uint64 {
	return s.drop
}

func (s *AudioSink) Reset() {
	s.piece.Reset()
	s.drop = 0
}

// MaxAudioFramesPerPacket 一个最大以太网帧能携带的音频帧数
func MaxAudioFramesPerPacket(headerSize, wireFrameBytes int) int {
	if wireFrameBytes <= 0 {
		return 0
	}
	return (avtp.EthFrameLenMax - avtp.AvtpOffset - headerSize) / wireFrameBytes
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
