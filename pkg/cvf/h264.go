// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package cvf

import (
	"bytes"

	"github.com/q191201771/lalmse/pkg/avc"
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/packetizer"
	"github.com/q191201771/naza/pkg/bele"
)

const (
	fuHeaderSize = 2 // FU indicator + FU header

	fuStart = 0x80
	fuEnd   = 0x40

	nalPrefixSize = 4 // 00 00 00 01 或者4字节长度
)

var _ base.IPacketizer = &H264Packetizer{}

// H264Packetizer CVF H.264，payload格式为rfc6184的Single NAL Unit或FU-A
//
// d13为true时使用1722-2011 D13草案的格式，没有h264_timestamp字段
type H264Packetizer struct {
	packetizer.Stream
	packetizer.Unsupported

	d13        bool
	headerSize int

	configured    bool
	cfg           base.VideoConfig
	singleNal     bool
	maxPayload    int
	maxPacketSize int

	// 发送方向，当前nalu在buffer[*processed:]中剩余的字节数
	nalRemain   int
	fragmenting bool
	fuIndicator uint8
	fuType      uint8
	lastSps     []byte
	sps         avc.Sps

	// 接收方向
	rxInFu      bool
	rxTruncated bool
	rxLenPos    int
	rxNalLen    int
	rxSawVcl    bool
	rxPiece     packetizer.Piece // check_pic_end时保留的AUD
}

func NewH264Packetizer(option base.PacketizerOption) *H264Packetizer {
	return newH264Packetizer(option, false)
}

func NewH264D13Packetizer(option base.PacketizerOption) *H264Packetizer {
	return newH264Packetizer(option, true)
}

func newH264Packetizer(option base.PacketizerOption, d13 bool) *H264Packetizer {
	uk := base.GenUkCvfH264()
	Log.Infof("[%s] lifecycle new cvf h264 packetizer. d13=%t", uk, d13)
	headerSize := avtp.CvfH264HeaderSize
	if d13 {
		headerSize = avtp.CvfH264D13HeaderSize
	}
	return &H264Packetizer{
		Stream:     packetizer.NewStream(uk, option),
		d13:        d13,
		headerSize: headerSize,
	}
}

func (p *H264Packetizer) Init() error {
	p.ResetRuntime()
	p.resetRuntime()
	return nil
}

func (p *H264Packetizer) SetNetworkConfig(cfg *base.NetworkConfig) error {
	if err := p.ApplyNetworkConfig(cfg); err != nil {
		return err
	}
	if p.configured {
		p.rebuildTemplate()
	}
	return nil
}

func (p *H264Packetizer) SetVideoConfig(cfg *base.VideoConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil video config")
	}
	if cfg.Format != base.VideoFormatH264ByteStream && cfg.Format != base.VideoFormatH264Avc {
		return base.NewErrInvalidConfig("format", cfg.Format)
	}
	if cfg.ClassIntervalFrames < 0 {
		return base.NewErrInvalidConfig("class_interval_frames", cfg.ClassIntervalFrames)
	}

	limit := avtp.EthFrameLenMax - avtp.AvtpOffset - p.headerSize
	maxPayload := limit
	if cfg.BytesPerFrame != 0 {
		if cfg.BytesPerFrame <= fuHeaderSize || cfg.BytesPerFrame > limit {
			return base.NewErrInvalidConfig("bytes_per_frame", cfg.BytesPerFrame)
		}
		maxPayload = cfg.BytesPerFrame
	}

	var singleNal bool
	switch cfg.Packetization {
	case base.VideoPacketizationDefault:
		singleNal = p.Option().H264SingleNal
	case base.VideoPacketizationSingleNal:
		singleNal = true
	case base.VideoPacketizationFuaOnly:
		singleNal = false
	default:
		return base.NewErrInvalidConfig("packetization", cfg.Packetization)
	}

	maxPacketSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + p.headerSize + maxPayload)
	if err != nil {
		return err
	}

	p.cfg = *cfg
	p.singleNal = singleNal
	p.maxPayload = maxPayload
	p.maxPacketSize = maxPacketSize
	p.rxPiece.Resize(maxPayload)
	p.resetRuntime()
	p.configured = true
	p.rebuildTemplate()

	Log.Infof("[%s] set video config. format=%d, max_payload=%d, single_nal=%t, bitrate=%d",
		p.UniqueKey(), cfg.Format, maxPayload, singleNal, cfg.Bitrate)
	return nil
}

func (p *H264Packetizer) CalcCbs() (base.CbsParams, error) {
	if !p.configured {
		return base.CbsParams{}, base.ErrNotConfigured
	}
	if p.cfg.Bitrate > 0 {
		return packetizer.CalcCbsByBitrate(p.PortTransmitRate(), p.maxPacketSize, p.cfg.Bitrate, p.maxPayload)
	}
	cif := p.cfg.ClassIntervalFrames
	if cif == 0 {
		cif = p.Option().ClassIntervalFrames
	}
	return packetizer.CalcCbsByFrames(p.PortTransmitRate(), p.maxPacketSize, cif, p.Option().CbsAdjustPercent)
}

// Packetize 每次调用输出一个包
//
// buffer为一个access unit，nalu之间为start code或者4字节长度。
// nalu能放进一个包时使用Single NAL Unit，否则切分成FU-A。buffer的最后一个包设置M位。
func (p *H264Packetizer) Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	if !p.configured {
		return 0, base.StatusContinue, base.ErrNotConfigured
	}
	if len(packet) < p.maxPacketSize {
		return 0, base.StatusContinue, base.NewErrBufferTooSmall(p.maxPacketSize, len(packet))
	}
	if buffer == nil {
		p.nalRemain = 0
		p.fragmenting = false
		return 0, base.StatusComplete, nil
	}
	if processed == nil {
		return 0, base.StatusContinue, base.NewErrInvalidArgument("nil processed")
	}

	if p.nalRemain == 0 {
		if *processed >= len(buffer) {
			return 0, base.StatusComplete, nil
		}
		if err := p.nextNal(buffer, processed); err != nil {
			return 0, p.txStatus(buffer, *processed), err
		}
	}

	nal := buffer[*processed : *processed+p.nalRemain]
	var header []byte
	var data []byte
	if !p.fragmenting && (len(nal) == 1 || (p.singleNal && len(nal) <= p.maxPayload-fuHeaderSize)) {
		data = nal
	} else {
		if !p.fragmenting {
			p.fragmenting = true
			p.fuIndicator = (nal[0] & 0xE0) | avc.NaluTypeFuA
			p.fuType = avc.ParseNaluType(nal[0])
			header = []byte{p.fuIndicator, p.fuType | fuStart}
			nal = nal[1:]
			*processed++
			p.nalRemain--
		} else {
			header = []byte{p.fuIndicator, p.fuType}
		}
		n := p.maxPayload - fuHeaderSize
		if n >= len(nal) {
			n = len(nal)
			header[1] |= fuEnd
			p.fragmenting = false
		}
		data = nal[:n]
	}
	*processed += len(data)
	p.nalRemain -= len(data)

	marker := p.nalRemain == 0 && *processed == len(buffer)
	size, err := p.writePacket(packet, timestamp, marker, header, data)
	if err != nil {
		return 0, base.StatusContinue, err
	}
	return size, p.txStatus(buffer, *processed), nil
}

// Depacketize 还原nalu，每个nalu前面加上start code或者4字节长度
//
// @return status:
//   - StatusComplete    收到M位，或者VCL之后收到AUD，或者输出buffer不够被截断
//   - StatusMayComplete 一个nalu结束但没有M位
//   - StatusContinue    FU-A的开始或中间分片
//   - StatusDiscard     被截断的nalu的后续分片，或者丢失了开始分片
func (p *H264Packetizer) Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	if !p.configured {
		return base.StatusContinue, base.ErrNotConfigured
	}
	if processed == nil || timestamp == nil {
		return base.StatusContinue, base.NewErrInvalidArgument("nil processed or timestamp")
	}
	pkt, err := p.CheckPacket(packet, p.headerSize, avtp.SubtypeCvf)
	if err != nil {
		return base.StatusContinue, err
	}
	if pkt.CvfFormat() != avtp.CvfFormatRfc || pkt.CvfFormatSubtype() != avtp.CvfFormatSubtypeH264 {
		err = base.NewErrInvalidFormat("cvf_format_subtype", uint32(pkt.CvfFormat())<<8|uint32(pkt.CvfFormatSubtype()))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}
	payload := pkt.CvfH264Payload(!p.d13)
	if len(payload) == 0 {
		err = base.NewErrInvalidFormat("stream_data_length", uint32(pkt.StreamDataLength()))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}

	p.TrackSeq(pkt)

	if !p.d13 && pkt.CvfPtv() {
		*timestamp = pkt.CvfH264Timestamp()
	} else if pkt.Tv() {
		*timestamp = pkt.AvtpTimestamp()
	}

	if p.rxPiece.Len() > 0 {
		if !p.writeNal(buffer, processed, p.rxPiece.Bytes()) {
			Log.Warnf("[%s] output buffer too small for pending aud. size=%d", p.UniqueKey(), len(buffer))
		}
		p.rxPiece.Reset()
	}

	t := avc.ParseNaluType(payload[0])
	switch {
	case t == avc.NaluTypeFuA:
		return p.depacketizeFua(buffer, processed, pkt, payload)
	case avc.IsUnspecified(t) || t >= avc.NaluTypeStapA:
		Log.Warnf("[%s] discard unsupported nalu. type=%s(%d), seq=%d",
			p.UniqueKey(), avc.ParseNaluTypeReadable(t), t, pkt.SequenceNum())
		err = base.NewErrInvalidFormat("nal_type", uint32(t))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}

	if p.rxInFu {
		Log.Warnf("[%s] fu-a without end fragment. seq=%d", p.UniqueKey(), pkt.SequenceNum())
		p.rxInFu = false
	}
	p.rxTruncated = false

	// check_pic_end
	if t == avc.NaluTypeAud && p.rxSawVcl {
		p.rxPiece.Append(payload)
		p.rxSawVcl = false
		return base.StatusComplete, nil
	}

	if !p.writeNal(buffer, processed, payload) {
		Log.Warnf("[%s] output buffer full, nalu truncated. seq=%d, nal_size=%d, buffer=%d",
			p.UniqueKey(), pkt.SequenceNum(), len(payload), len(buffer))
		p.rxSawVcl = false
		return base.StatusComplete, nil
	}
	if avc.IsVcl(t) {
		p.rxSawVcl = true
	}
	return p.rxEndStatus(pkt.CvfM()), nil
}

func (p *H264Packetizer) Release() uint64 {
	n := p.Stream.Release()
	p.configured = false
	p.cfg = base.VideoConfig{}
	p.resetRuntime()
	return n
}

func (p *H264Packetizer) depacketizeFua(buffer []byte, processed *int, pkt avtp.Packet, payload []byte) (base.Status, error) {
	if len(payload) <= fuHeaderSize {
		err := base.NewErrInvalidFormat("fu_a_size", uint32(len(payload)))
		p.Dump(err, pkt)
		return base.StatusContinue, err
	}
	fuHeader := payload[1]
	end := fuHeader&fuEnd != 0
	nalType := avc.ParseNaluType(fuHeader)

	if fuHeader&fuStart != 0 {
		if p.rxInFu {
			Log.Warnf("[%s] fu-a without end fragment. seq=%d", p.UniqueKey(), pkt.SequenceNum())
		}
		p.rxInFu = true
		p.rxTruncated = false
		if !p.writeNal(buffer, processed, []byte{(payload[0] & 0xE0) | nalType}) {
			return p.truncate(pkt, end), nil
		}
	} else if !p.rxInFu {
		if p.rxTruncated {
			if end {
				p.rxTruncated = false
			}
			return base.StatusDiscard, nil
		}
		Log.Debugf("[%s] fu-a fragment without start, discard. seq=%d", p.UniqueKey(), pkt.SequenceNum())
		return base.StatusDiscard, nil
	}

	if !p.appendNal(buffer, processed, payload[fuHeaderSize:]) {
		return p.truncate(pkt, end), nil
	}
	if !end {
		return base.StatusContinue, nil
	}
	p.rxInFu = false
	if avc.IsVcl(nalType) {
		p.rxSawVcl = true
	}
	return p.rxEndStatus(pkt.CvfM()), nil
}

// nextNal 定位buffer[*processed:]中的下一个nalu，*processed指向nalu的第一个字节
func (p *H264Packetizer) nextNal(buffer []byte, processed *int) error {
	var begin, end int
	if p.cfg.Format == base.VideoFormatH264Avc {
		if len(buffer)-*processed < nalPrefixSize {
			*processed = len(buffer)
			return base.NewErrInvalidFormat("avc_length", uint32(len(buffer)))
		}
		l := int(bele.BeUint32(buffer[*processed:]))
		begin = *processed + nalPrefixSize
		end = begin + l
		if l == 0 || end > len(buffer) {
			*processed = len(buffer)
			return base.NewErrInvalidFormat("avc_length", uint32(l))
		}
	} else {
		pos, length := avc.IterateNaluStartCode(buffer, *processed)
		if pos == -1 {
			*processed = len(buffer)
			return base.NewErrInvalidFormat("start_code", 0)
		}
		if pos != *processed {
			Log.Warnf("[%s] skip bytes before start code. size=%d", p.UniqueKey(), pos-*processed)
		}
		begin = pos + length
		end, _ = avc.IterateNaluStartCode(buffer, begin)
		if end == -1 {
			end = len(buffer)
		}
		if begin == end {
			*processed = begin
			return base.NewErrInvalidFormat("nal_size", 0)
		}
	}

	t := avc.ParseNaluType(buffer[begin])
	if avc.IsUnspecified(t) {
		*processed = end
		Log.Warnf("[%s] drop nalu with invalid type. type=%s(%d), size=%d",
			p.UniqueKey(), avc.ParseNaluTypeReadable(t), t, end-begin)
		return base.NewErrInvalidFormat("nal_type", uint32(t))
	}
	if t == avc.NaluTypeSps {
		p.onSps(buffer[begin:end])
	}
	*processed = begin
	p.nalRemain = end - begin
	return nil
}

// onSps SPS变化时解析并打印视频参数，解析失败不影响发送
func (p *H264Packetizer) onSps(nal []byte) {
	if bytes.Equal(nal, p.lastSps) {
		return
	}
	p.lastSps = append(p.lastSps[:0], nal...)
	sps, err := avc.ParseSps(nal)
	if err != nil {
		Log.Warnf("[%s] parse sps failed. err=%+v", p.UniqueKey(), err)
		return
	}
	p.sps = sps
	Log.Infof("[%s] sps. profile=%d, level=%d, width=%d, height=%d",
		p.UniqueKey(), sps.ProfileIdc, sps.LevelIdc, sps.Width, sps.Height)
}

// Sps 最近一次发送的可以解析的SPS
func (p *H264Packetizer) Sps() (avc.Sps, bool) {
	return p.sps, p.sps.Width != 0
}

func (p *H264Packetizer) writePacket(packet []byte, timestamp uint32, marker bool, header, data []byte) (int, error) {
	payloadSize := len(header) + len(data)
	packetSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + p.headerSize + payloadSize)
	if err != nil {
		return 0, err
	}
	pkt, err := p.WriteHeader(packet, packetSize)
	if err != nil {
		return 0, err
	}
	pkt.SetTv(true)
	pkt.SetAvtpTimestamp(timestamp)
	pkt.SetCvfM(marker)
	if p.d13 {
		pkt.SetStreamDataLength(uint16(payloadSize))
	} else {
		pkt.SetStreamDataLength(uint16(payloadSize + avtp.CvfH264HeaderSize - avtp.CvfH264D13HeaderSize))
		pkt.SetCvfH264Timestamp(timestamp)
	}

	dst := packet[avtp.AvtpOffset+p.headerSize:]
	n := copy(dst, header)
	copy(dst[n:], data)
	return packetSize, nil
}

func (p *H264Packetizer) txStatus(buffer []byte, processed int) base.Status {
	if p.nalRemain == 0 && processed >= len(buffer) {
		return base.StatusComplete
	}
	return base.StatusContinue
}

func (p *H264Packetizer) rxEndStatus(marker bool) base.Status {
	if marker {
		p.rxSawVcl = false
		return base.StatusComplete
	}
	return base.StatusMayComplete
}

// writeNal 写入前缀和nalu的开头部分，返回false表示输出buffer不够
func (p *H264Packetizer) writeNal(buffer []byte, processed *int, nal []byte) bool {
	if len(buffer)-*processed < nalPrefixSize {
		return false
	}
	p.rxLenPos = *processed
	p.rxNalLen = 0
	if p.cfg.Format == base.VideoFormatH264Avc {
		bele.BePutUint32(buffer[*processed:], 0)
	} else {
		copy(buffer[*processed:], avc.NaluStartCode4)
	}
	*processed += nalPrefixSize
	return p.appendNal(buffer, processed, nal)
}

// appendNal 追加nalu数据，AVC格式下同时更新长度字段
func (p *H264Packetizer) appendNal(buffer []byte, processed *int, data []byte) bool {
	n := copy(buffer[*processed:], data)
	*processed += n
	p.rxNalLen += n
	if p.cfg.Format == base.VideoFormatH264Avc && p.rxLenPos+nalPrefixSize <= len(buffer) {
		bele.BePutUint32(buffer[p.rxLenPos:], uint32(p.rxNalLen))
	}
	return n == len(data)
}

func (p *H264Packetizer) truncate(pkt avtp.Packet, end bool) base.Status {
	Log.Warnf("[%s] output buffer full, nalu truncated. seq=%d, nal_size=%d", p.UniqueKey(), pkt.SequenceNum(), p.rxNalLen)
	p.rxInFu = false
	p.rxTruncated = !end
	p.rxSawVcl = false
	return base.StatusComplete
}

func (p *H264Packetizer) resetRuntime() {
	p.nalRemain = 0
	p.fragmenting = false
	p.fuIndicator = 0
	p.fuType = 0
	p.lastSps = p.lastSps[:0]
	p.sps = avc.Sps{}
	p.rxInFu = false
	p.rxTruncated = false
	p.rxLenPos = 0
	p.rxNalLen = 0
	p.rxSawVcl = false
	p.rxPiece.Reset()
}

func (p *H264Packetizer) rebuildTemplate() {
	if p.d13 {
		p.SetTemplate(p.NewTemplate(avtp.TemplateCvfH264D13))
		return
	}
	t := p.NewTemplate(avtp.TemplateCvfH264)
	t.SetCvfPtv(true)
	p.SetTemplate(t)
}
