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

// Stream 所有格式共用的实例状态：网络配置、包头模板、发送序号、接收序号统计
//
// 各格式的packetizer嵌入该结构体
type Stream struct {
	uniqueKey string
	option    base.PacketizerOption

	netConfig    base.NetworkConfig
	hasNetConfig bool

	template []byte
	seq      uint8
	seqStat  SeqStat
	logDump  base.LogDump
}

func NewStream(uniqueKey string, option base.PacketizerOption) Stream {
	return Stream{
		uniqueKey: uniqueKey,
		option:    option,
		logDump:   base.NewLogDump(Log, base.LogDumpDebugMaxNum),
	}
}

func (s *Stream) UniqueKey() string {
	return s.uniqueKey
}

func (s *Stream) Option() base.PacketizerOption {
	return s.option
}

func (s *Stream) NetConfig() base.NetworkConfig {
	return s.netConfig
}

// ApplyNetworkConfig 校验并保存网络配置，调用方随后需要重建包头模板
func (s *Stream) ApplyNetworkConfig(cfg *base.NetworkConfig) error {
	if cfg == nil {
		return base.NewErrInvalidArgument("nil network config")
	}
	if cfg.Priority > 7 {
		return base.NewErrInvalidConfig("priority", cfg.Priority)
	}
	if cfg.Vid > 0xFFF {
		return base.NewErrInvalidConfig("vid", cfg.Vid)
	}

	s.netConfig = *cfg
	s.hasNetConfig = true
	Log.Infof("[%s] set network config. dst=%s, src=%s, vid=%d, pcp=%d, unique_id=%d, port_rate=%d",
		s.uniqueKey, cfg.DestMac, cfg.SourceMac, cfg.Vid, cfg.Priority, cfg.UniqueId, cfg.PortTransmitRate)
	return nil
}

// NewTemplate 生成带以太网头和stream_id的包头模板，格式相关字段由调用方继续填写
func (s *Stream) NewTemplate(t avtp.TemplateType) avtp.Packet {
	b := avtp.CopyTemplate(t)
	avtp.PutEthHeader(b, s.netConfig.DestMac, s.netConfig.SourceMac, s.netConfig.Vid, s.netConfig.Priority)
	p := avtp.Packet(b)
	p.SetStreamId(s.netConfig.StreamId())
	return p
}

func (s *Stream) SetTemplate(p avtp.Packet) {
	s.template = p
}

func (s *Stream) Template() avtp.Packet {
	return s.template
}

// PortTransmitRate 未设置网络配置时返回0
func (s *Stream) PortTransmitRate() uint64 {
	return s.netConfig.PortTransmitRate
}

// WriteHeader 将模板拷贝到packet头部并写入下一个sequence_num
//
// @param packetSize: 本包最终的大小，用于检查输出buffer，不足最小帧长时补0
func (s *Stream) WriteHeader(packet []byte, packetSize int) (avtp.Packet, error) {
	if len(packet) < packetSize {
		return nil, base.NewErrBufferTooSmall(packetSize, len(packet))
	}
	n := copy(packet, s.template)
	for i := n; i < packetSize; i++ {
		packet[i] = 0
	}
	p := avtp.Packet(packet)
	p.SetSequenceNum(s.nextSeq())
	return p, nil
}

func (s *Stream) nextSeq() (ret uint8) {
	ret = s.seq
	s.seq++
	return
}

// CheckPacket 校验接收到的包的长度和subtype，失败时打印hex dump
func (s *Stream) CheckPacket(packet []byte, headerSize int, subtype uint8) (avtp.Packet, error) {
	p := avtp.Packet(packet)
	if err := p.Check(headerSize); err != nil {
		s.Dump(err, packet)
		return nil, err
	}
	if p.Subtype() != subtype {
		err := base.NewErrInvalidFormat("subtype", uint32(p.Subtype()))
		s.Dump(err, packet)
		return nil, err
	}
	return p, nil
}

func (s *Stream) Dump(err error, packet []byte) {
	s.logDump.DumpPacket(s.uniqueKey, err, packet)
}

// TrackSeq 更新接收序号统计，不连续只记录，不影响数据交付
func (s *Stream) TrackSeq(p avtp.Packet) {
	seq := p.SequenceNum()
	expected := s.seqStat.Expected()
	if s.seqStat.Check(seq) {
		Log.Debugf("[%s] sequence discontinuity. expected=%d, got=%d, diff=%d, total=%d",
			s.uniqueKey, expected, seq, SubSeq8(seq, expected), s.seqStat.Discontinuity())
	}
}

func (s *Stream) SeqStat() SeqStat {
	return s.seqStat
}

// ResetRuntime 序号相关状态清零，保留配置
func (s *Stream) ResetRuntime() {
	s.seq = 0
	s.seqStat.Reset()
	s.logDump.Reset()
}

// Release 打印统计信息，清空所有状态，返回累计的序号不连续次数
func (s *Stream) Release() uint64 {
	n := s.seqStat.Discontinuity()
	Log.Infof("[%s] release. sequence discontinuity=%d", s.uniqueKey, n)

	s.ResetRuntime()
	s.netConfig = base.NetworkConfig{}
	s.hasNetConfig = false
	s.template = nil
	return n
}

// ClampPacketSize 小于最小帧长的包补齐到最小帧长，超过最大帧长则配置失败
func ClampPacketSize(size int) (int, error) {
	if size > avtp.EthFrameLenMax {
		return 0, base.NewErrInvalidConfig("avtp_packet_size", size)
	}
	if size < avtp.EthFrameLenMin {
		return avtp.EthFrameLenMin, nil
	}
	return size, nil
}
