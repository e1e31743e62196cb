// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "fmt"

type MacAddr [6]byte

func (m MacAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// NetworkConfig 流的网络参数，通过 SetNetworkConfig 应用到包头模板中
type NetworkConfig struct {
	DestMac          MacAddr `json:"dest_mac"`
	SourceMac        MacAddr `json:"source_mac"`
	Priority         uint8   `json:"priority"` // 0~7
	Vid              uint16  `json:"vid"`
	UniqueId         uint16  `json:"unique_id"`
	PortTransmitRate uint64  `json:"port_transmit_rate"` // bit/s
}

// StreamId stream_id = 源mac地址(48b) + unique id(16b)
func (c *NetworkConfig) StreamId() uint64 {
	var id uint64
	for _, b := range c.SourceMac {
		id = (id << 8) | uint64(b)
	}
	return (id << 16) | uint64(c.UniqueId)
}

type AudioConfig struct {
	SampleRate      int  `json:"sample_rate"`
	Channels        int  `json:"channels"`
	SampleBitDepth  int  `json:"sample_bit_depth"` // 16, 18, 20, 24, 32
	BytesPerSample  int  `json:"bytes_per_sample"` // 2, 3, 4
	IsBigEndian     bool `json:"is_big_endian"`
	SamplesPerFrame int  `json:"samples_per_frame"` // 为0时根据采样率和class interval自动计算
}

type VideoFormat int

const (
	// VideoFormatH264ByteStream nalu之间使用 00 00 00 01 start code分隔
	VideoFormatH264ByteStream VideoFormat = iota

	// VideoFormatH264Avc nalu前面是4字节大端长度
	VideoFormatH264Avc
)

type VideoPacketization int

const (
	// VideoPacketizationDefault 使用 PacketizerOption.H264SingleNal 的配置
	VideoPacketizationDefault VideoPacketization = iota

	// VideoPacketizationSingleNal nalu能放进一个包时，使用Single NAL Unit包
	VideoPacketizationSingleNal

	// VideoPacketizationFuaOnly 所有nalu都使用FU-A
	VideoPacketizationFuaOnly
)

type VideoConfig struct {
	Format              VideoFormat        `json:"format"`
	BytesPerFrame       int                `json:"bytes_per_frame"`       // 为0时使用最大payload
	Bitrate             uint64             `json:"bitrate"`               // 为0时使用帧数计算CBS
	ClassIntervalFrames int                `json:"class_interval_frames"` // 为0时使用 PacketizerOption.ClassIntervalFrames
	Packetization       VideoPacketization `json:"packetization"`
}

type Mpeg2TsType int

const (
	Mpeg2TsTypeTs   Mpeg2TsType = iota // 188字节
	Mpeg2TsTypeM2ts                    // 4字节timestamp + 188字节
)

type Mpeg2TsTransmitMode int

const (
	// Mpeg2TsTransmitModeBitrate 根据码率计算每个ts包的时间间隔
	Mpeg2TsTransmitModeBitrate Mpeg2TsTransmitMode = iota

	// Mpeg2TsTransmitModeTimestamp 使用m2ts包头中的27MHz时间戳
	Mpeg2TsTransmitModeTimestamp
)

type Mpeg2TsConfig struct {
	Type              Mpeg2TsType         `json:"type"`
	TsPacketsPerFrame int                 `json:"tspackets_per_frame"` // 为0时使用能放进一个以太网帧的最大值
	Bitrate           uint64              `json:"bitrate"`
	TransmitMode      Mpeg2TsTransmitMode `json:"transmit_mode"`
}

// CbsParams credit-based shaper参数
//
// BandwidthFraction 是以 2^32 为满量程的定点数，IdleSlope 为其高16位
type CbsParams struct {
	BandwidthFraction uint32
	IdleSlope         uint32
	SendSlope         int32
}

type AudioInfo struct {
	AvtpPacketSize    int
	SamplesPerPacket  int
	FrameIntervalTime uint32 // 单位纳秒
}

// PacketizerOption 各个packetizer实例共享的引擎级参数
type PacketizerOption struct {
	ClassIntervalFrames int
	CbsAdjustPercent    int
	H264SingleNal       bool
}

var DefaultPacketizerOption = PacketizerOption{
	ClassIntervalFrames: DefaultClassIntervalFrames,
	CbsAdjustPercent:    DefaultCbsAdjustPercent,
	H264SingleNal:       true,
}
