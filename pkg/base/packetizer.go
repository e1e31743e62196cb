// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// IPacketizer 一种AVTP格式的一个流实例
//
// 同一个实例的所有方法需要由调用方串行调用，实例内部不加锁。
// 每种格式只实现自己关心的 SetXxxConfig，其余返回 ErrNotSupported。
type IPacketizer interface {
	UniqueKey() string

	// Init 软复位：序号、piece buffer、时间戳状态清零，保留配置
	Init() error

	SetNetworkConfig(cfg *NetworkConfig) error
	SetAudioConfig(cfg *AudioConfig) error
	SetVideoConfig(cfg *VideoConfig) error
	SetMpeg2TsConfig(cfg *Mpeg2TsConfig) error

	GetAudioInfo() (AudioInfo, error)
	CalcCbs() (CbsParams, error)

	// Packetize 从 buffer[*processed:] 中取出最多一个包的数据，打包成完整的以太网帧写入packet
	//
	// @param packet:    输出，调用方预先申请，长度至少为 avtp.EthFrameLenMax
	// @param buffer:    输入媒体数据。为nil时表示冲刷piece buffer中的剩余数据
	// @param processed: 输入输出，buffer中已经处理的字节数
	// @param timestamp: avtp presentation time，单位纳秒，取低32位
	//
	// @return packetSize: 写入packet的字节数，为0表示本次没有产生包
	Packetize(packet []byte, buffer []byte, processed *int, timestamp uint32) (packetSize int, status Status, err error)

	// Depacketize 解析一个以太网帧，将媒体数据写入 buffer[*processed:]
	//
	// @param timestamp: 输出，该包的avtp时间戳（必要时为插值结果）
	Depacketize(buffer []byte, processed *int, timestamp *uint32, packet []byte) (status Status, err error)

	// Release 释放前调用，复位实例并返回累计的序号不连续次数
	Release() uint64
}

// IOffsetCalculator 音频格式可选实现：流开始后第一次depacketize时，根据时间戳计算数据在输出buffer中的偏移
type IOffsetCalculator interface {
	RequestOffsetCalc(startTime uint32)
}
