// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package iec61883

import (
	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/mpegts"
	"github.com/q191201771/lalmse/pkg/packetizer"
	"github.com/q191201771/naza/pkg/bele"
)

const (
	// SourcePacketSize 4字节SPH + 188字节ts
	SourcePacketSize = avtp.Iec61883_4SphSize + mpegts.TsPacketSize

	// TsPacketsPerFrameMax 一个1522字节的以太网帧最多携带7个source packet
	TsPacketsPerFrameMax = (avtp.EthFrameLenMax - avtp.AvtpOffset - avtp.Iec61883HeaderSize) / SourcePacketSize
)

var _ base.IPacketizer = &MpegTsPacketizer{}

// MpegTsPacketizer IEC 61883-4，每个AVTP包携带 TsPacketsPerFrame 个source packet
//
// 发送方向，不足一个包的ts单元保存在piece中，每个ts单元的SPH时间戳有两种计算方式：
//   - Mpeg2TsTransmitModeBitrate   以调用时传入的时间戳为基准，每个ts包递增 ceil(188*8*1e9/bitrate) 纳秒
//   - Mpeg2TsTransmitModeTimestamp 以调用时传入的时间戳为基准，加上m2ts头中27MHz ats相对于基准单元的差值
//
// 每次调用传入新的时间戳时重新确定基准，piece中的单元排在新基准之前
type MpegTsPacketizer struct {
	packetizer.Stream
	packetizer.Unsupported

	configured      bool
	cfg             base.Mpeg2TsConfig
	unitSize        int // 输入输出中ts单元的大小，188或192
	packetsPerFrame int
	packetSize      int
	diff            uint32

	dbc uint8

	txPiece      packetizer.Piece
	txPieceUnits int
	hasCallTs    bool
	callTs       uint32
	nextTs       uint32 // bitrate模式，下一个ts单元的时间戳
	anchorTs     uint32 // timestamp模式
	anchorAts    uint32
	anchored     bool

	rxPiece packetizer.Piece
	rxDrop  uint64

	psi    mpegts.PsiTracker
	psiErr uint64
}

func NewMpegTsPacketizer(option base.PacketizerOption) *MpegTsPacketizer {
	uk := base.GenUkIec61883_4()
	Log.Infof("[%s] lifecycle new iec61883-4 packetizer.", uk)
	return &MpegTsPacketizer{
		Stream: packetizer.NewStream(uk, option),
	}
}

func (p *MpegTsPacketizer) Init() error {
	p.ResetRuntime()
	p.resetRuntime()
	return nil
}

func (p *MpegTsPacketizer) SetNetworkConfig(cfg *base.NetworkConfig) error {
	if err := p.ApplyNetworkConfig(cfg); err != nil {
		return err
	}
	if p.configured {
		p.rebuildTemplate()
	}
	return nil
}

func (p *MpegTsPacketizer) SetMpeg2TsConfig(cfg *base.Mpeg2TsConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil mpeg2ts config")
	}
	var unitSize int
	switch cfg.Type {
	case base.Mpeg2TsTypeTs:
		unitSize = mpegts.TsPacketSize
	case base.Mpeg2TsTypeM2ts:
		unitSize = mpegts.M2tsPacketSize
	default:
		return base.NewErrInvalidConfig("type", cfg.Type)
	}

	ppf := cfg.TsPacketsPerFrame
	if ppf == 0 {
		ppf = TsPacketsPerFrameMax
	}
	if ppf < 0 || ppf > TsPacketsPerFrameMax {
		return base.NewErrInvalidConfig("tspackets_per_frame", cfg.TsPacketsPerFrame)
	}

	var diff uint32
	switch cfg.TransmitMode {
	case base.Mpeg2TsTransmitModeBitrate:
		if cfg.Bitrate == 0 {
			return base.NewErrInvalidConfig("bitrate", cfg.Bitrate)
		}
		diff = TsPacketInterval(cfg.Bitrate)
	case base.Mpeg2TsTransmitModeTimestamp:
		if cfg.Type != base.Mpeg2TsTypeM2ts {
			return base.NewErrInvalidConfig("transmit_mode", cfg.TransmitMode)
		}
	default:
		return base.NewErrInvalidConfig("transmit_mode", cfg.TransmitMode)
	}

	packetSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + avtp.Iec61883HeaderSize + ppf*SourcePacketSize)
	if err != nil {
		return err
	}

	p.cfg = *cfg
	p.cfg.TsPacketsPerFrame = ppf
	p.unitSize = unitSize
	p.packetsPerFrame = ppf
	p.packetSize = packetSize
	p.diff = diff
	p.txPiece.Resize(ppf * unitSize)
	p.rxPiece.Resize(TsPacketsPerFrameMax * unitSize)
	p.resetRuntime()
	p.configured = true
	p.rebuildTemplate()

	Log.Infof("[%s] set mpeg2ts config. type=%d, packets_per_frame=%d, bitrate=%d, mode=%d, packet_size=%d, diff=%d",
		p.UniqueKey(), cfg.Type, ppf, cfg.Bitrate, cfg.TransmitMode, packetSize, diff)
	return nil
}

// CalcCbs 配置了码率时按码率计算，否则按每秒 ClassIntervalFrames 个满包计算
func (p *MpegTsPacketizer) CalcCbs() (base.CbsParams, error) {
	if !p.configured {
		return base.CbsParams{}, base.ErrNotConfigured
	}
	if p.cfg.Bitrate > 0 {
		return packetizer.CalcCbsByBitrate(p.PortTransmitRate(), p.packetSize, p.cfg.Bitrate, p.packetsPerFrame*mpegts.TsPacketSize)
	}
	return packetizer.CalcCbsByFrames(p.PortTransmitRate(), p.packetSize, p.Option().ClassIntervalFrames, p.Option().CbsAdjustPercent)
}

// Packetize 攒够 TsPacketsPerFrame 个ts单元后输出一个包
//
// buffer为nil时将piece中剩余的单元作为一个短包发送。sync byte错误的单元被丢弃，
// buffer末尾不足一个单元的数据被丢弃。
func (p *MpegTsPacketizer) Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (int, base.Status, error) {
	if !p.configured {
		return 0, base.StatusContinue, base.ErrNotConfigured
	}
	if len(packet) < p.packetSize {
		return 0, base.StatusContinue, base.NewErrBufferTooSmall(p.packetSize, len(packet))
	}

	if buffer == nil {
		if p.txPieceUnits == 0 {
			return 0, base.StatusComplete, nil
		}
		size, err := p.emit(packet)
		if err != nil {
			return 0, base.StatusContinue, err
		}
		return size, base.StatusComplete, nil
	}
	if processed == nil {
		return 0, base.StatusContinue, base.NewErrInvalidArgument("nil processed")
	}

	if !p.hasCallTs || timestamp != p.callTs {
		p.rebase(buffer, *processed, timestamp)
	}

	for p.txPieceUnits < p.packetsPerFrame && len(buffer)-*processed >= p.unitSize {
		unit := buffer[*processed : *processed+p.unitSize]
		*processed += p.unitSize
		if err := mpegts.CheckTsPacket(unit[p.unitSize-mpegts.TsPacketSize:]); err != nil {
			Log.Warnf("[%s] drop invalid ts packet. err=%+v", p.UniqueKey(), err)
			continue
		}
		p.trackPsi(unit[p.unitSize-mpegts.TsPacketSize:])
		p.txPiece.Append(unit)
		p.txPieceUnits++
	}
	if remain := len(buffer) - *processed; remain > 0 && remain < p.unitSize {
		Log.Warnf("[%s] drop trailing partial ts packet. size=%d", p.UniqueKey(), remain)
		*processed = len(buffer)
	}

	if p.txPieceUnits < p.packetsPerFrame {
		return 0, base.StatusNotEnoughData, nil
	}

	size, err := p.emit(packet)
	if err != nil {
		return 0, base.StatusContinue, err
	}
	if *processed == len(buffer) {
		return size, base.StatusComplete, nil
	}
	return size, base.StatusContinue, nil
}

// Depacketize 输出ts单元，类型为m2ts时使用SPH重建27MHz的ats
//
// @return status: 输出buffer已满时返回 StatusComplete，其他情况由调用方判断数据边界，返回 StatusMayComplete
func (p *MpegTsPacketizer) Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (base.Status, error) {
	if !p.configured {
		return base.StatusContinue, base.ErrNotConfigured
	}
	if processed == nil || timestamp == nil {
		return base.StatusContinue, base.NewErrInvalidArgument("nil processed or timestamp")
	}
	pkt, err := p.CheckPacket(packet, avtp.Iec61883HeaderSize, avtp.Subtype61883)
	if err != nil {
		return base.StatusContinue, err
	}
	if pkt.CipFmt() != avtp.CipFmt61883_4 || !pkt.CipSph() {
		err = base.NewErrInvalidFormat("cip_fmt", uint32(pkt.CipFmt()))
		p.Dump(err, packet)
		return base.StatusContinue, err
	}

	p.TrackSeq(pkt)

	if !p.flushRx(buffer, processed) {
		p.rxDrop++
		Log.Warnf("[%s] output buffer full with pending data, drop packet. seq=%d, buffer=%d, total=%d",
			p.UniqueKey(), pkt.SequenceNum(), len(buffer), p.rxDrop)
		return base.StatusComplete, nil
	}

	if pkt.Tv() {
		*timestamp = pkt.AvtpTimestamp()
	}

	payload := pkt.Iec61883Payload()
	full := false
	for pos := 0; pos+SourcePacketSize <= len(payload); pos += SourcePacketSize {
		sph := bele.BeUint32(payload[pos:])
		ts := payload[pos+avtp.Iec61883_4SphSize : pos+SourcePacketSize]
		if err := mpegts.CheckTsPacket(ts); err != nil {
			Log.Warnf("[%s] drop invalid ts packet. seq=%d, err=%+v", p.UniqueKey(), pkt.SequenceNum(), err)
			continue
		}
		p.trackPsi(ts)
		if pos == 0 && !pkt.Tv() {
			*timestamp = sph
		}

		if !full && len(buffer)-*processed >= p.unitSize {
			*processed += p.writeUnit(buffer[*processed:], sph, ts)
			continue
		}
		full = true
		var unit [mpegts.M2tsPacketSize]byte
		n := p.writeUnit(unit[:], sph, ts)
		p.rxPiece.Append(unit[:n])
	}

	if full || *processed == len(buffer) {
		return base.StatusComplete, nil
	}
	return base.StatusMayComplete, nil
}

func (p *MpegTsPacketizer) Release() uint64 {
	n := p.Stream.Release()
	if p.rxDrop > 0 || p.psiErr > 0 {
		Log.Infof("[%s] release. dropped packets=%d, psi errors=%d", p.UniqueKey(), p.rxDrop, p.psiErr)
	}
	p.configured = false
	p.cfg = base.Mpeg2TsConfig{}
	p.rxDrop = 0
	p.resetRuntime()
	return n
}

// rebase 调用时传入了新的时间戳，piece中已有的单元排在该时间戳之前
func (p *MpegTsPacketizer) rebase(buffer []byte, processed int, timestamp uint32) {
	p.hasCallTs = true
	p.callTs = timestamp

	switch p.cfg.TransmitMode {
	case base.Mpeg2TsTransmitModeBitrate:
		p.nextTs = timestamp - uint32(p.txPieceUnits)*p.diff
	case base.Mpeg2TsTransmitModeTimestamp:
		p.anchorTs = timestamp
		p.anchored = false
		if len(buffer)-processed >= mpegts.M2tsHeaderSize {
			if h, err := mpegts.ParseM2tsHeader(buffer[processed:]); err == nil {
				p.anchorAts = h.Ats
				p.anchored = true
			}
		}
	}
}

// emit 将piece中的单元打包到packet中，返回包大小
//
// 单元数不超过 packetsPerFrame，包大小不超过配置时校验过的 p.packetSize
func (p *MpegTsPacketizer) emit(packet []byte) (int, error) {
	units := p.txPieceUnits
	payloadSize := avtp.CipHeaderSize + units*SourcePacketSize
	packetSize, err := packetizer.ClampPacketSize(avtp.AvtpOffset + avtp.StreamHeaderSize + payloadSize)
	if err != nil {
		return 0, err
	}
	pkt, err := p.WriteHeader(packet, packetSize)
	if err != nil {
		return 0, err
	}
	pkt.SetStreamDataLength(uint16(payloadSize))
	pkt.SetCipDbc(p.dbc)
	p.dbc += uint8(units * avtp.Iec61883_4DataBlocks)

	src := p.txPiece.Bytes()
	dst := packet[avtp.AvtpOffset+avtp.Iec61883HeaderSize:]
	for i := 0; i < units; i++ {
		unit := src[i*p.unitSize : (i+1)*p.unitSize]
		sph := p.unitTimestamp(unit)
		if i == 0 {
			pkt.SetTv(true)
			pkt.SetAvtpTimestamp(sph)
		}
		bele.BePutUint32(dst[i*SourcePacketSize:], sph)
		copy(dst[i*SourcePacketSize+avtp.Iec61883_4SphSize:], unit[p.unitSize-mpegts.TsPacketSize:])
	}

	p.txPiece.Reset()
	p.txPieceUnits = 0
	return packetSize, nil
}

func (p *MpegTsPacketizer) unitTimestamp(unit []byte) uint32 {
	if p.cfg.TransmitMode == base.Mpeg2TsTransmitModeBitrate {
		ts := p.nextTs
		p.nextTs += p.diff
		return ts
	}

	h, _ := mpegts.ParseM2tsHeader(unit)
	if !p.anchored {
		p.anchorAts = h.Ats
		p.anchored = true
	}
	delta := int64(mpegts.SubAts(h.Ats, p.anchorAts)) * 1000000000 / mpegts.AtsClock
	return p.anchorTs + uint32(delta)
}

// writeUnit 写入一个输出单元，返回写入的字节数
func (p *MpegTsPacketizer) writeUnit(dst []byte, sph uint32, ts []byte) int {
	if p.cfg.Type == base.Mpeg2TsTypeM2ts {
		mpegts.PutM2tsHeader(dst, mpegts.M2tsHeader{Ats: mpegts.Ns2Ts(sph)})
		copy(dst[mpegts.M2tsHeaderSize:], ts)
		return mpegts.M2tsPacketSize
	}
	copy(dst, ts)
	return mpegts.TsPacketSize
}

// flushRx 输出上次剩余的完整单元
func (p *MpegTsPacketizer) flushRx(buffer []byte, processed *int) bool {
	if p.rxPiece.Len() == 0 {
		return true
	}
	n := (len(buffer) - *processed) / p.unitSize * p.unitSize
	if n > p.rxPiece.Len() {
		n = p.rxPiece.Len()
	}
	*processed += p.rxPiece.Drain(buffer[*processed : *processed+n])
	return p.rxPiece.Len() == 0
}

func (p *MpegTsPacketizer) resetRuntime() {
	p.dbc = 0
	p.txPiece.Reset()
	p.txPieceUnits = 0
	p.hasCallTs = false
	p.callTs = 0
	p.nextTs = 0
	p.anchorTs = 0
	p.anchorAts = 0
	p.anchored = false
	p.rxPiece.Reset()
	p.psi.Reset()
	p.psiErr = 0
}

// Programs 流中已经解析出的节目信息
func (p *MpegTsPacketizer) Programs() []mpegts.Pmt {
	return p.psi.Programs()
}

func (p *MpegTsPacketizer) trackPsi(ts []byte) {
	changed, err := p.psi.Feed(ts)
	if err != nil {
		p.psiErr++
		Log.Warnf("[%s] parse psi failed. total=%d, err=%+v", p.UniqueKey(), p.psiErr, err)
		return
	}
	if !changed {
		return
	}
	for _, pmt := range p.psi.Programs() {
		Log.Infof("[%s] program. number=%d, pcr_pid=0x%x, version=%d, streams=%+v",
			p.UniqueKey(), pmt.ProgramNumber, pmt.PcrPid, pmt.Version, pmt.ProgramElements)
	}
}

func (p *MpegTsPacketizer) rebuildTemplate() {
	t := p.NewTemplate(avtp.TemplateIec61883_4)
	t.SetStreamDataLength(uint16(avtp.CipHeaderSize + p.packetsPerFrame*SourcePacketSize))
	p.SetTemplate(t)
}

// TsPacketInterval 码率下每个188字节ts包的发送间隔，单位纳秒，向上取整
func TsPacketInterval(bitrate uint64) uint32 {
	return uint32((uint64(mpegts.TsPacketSize)*8*1000000000 + bitrate - 1) / bitrate)
}
