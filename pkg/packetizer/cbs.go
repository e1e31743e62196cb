// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

import (
	"fmt"

	"github.com/q191201771/lalmse/pkg/avtp"
	"github.com/q191201771/lalmse/pkg/base"
)

const (
	cbsFractionMax  uint64 = 0xFFFFFFFF
	cbsSlopeMax     uint32 = 0xFFFF
	cbsRoundingHalf uint64 = 1 << 15
)

// CalcCbs 根据带宽占比计算credit-based shaper参数
//
// bandwidth_fraction = round(bwNum * 0xFFFFFFFF / bwDenom)，取整到idle slope的精度（低16位）
// idle_slope 为 bandwidth_fraction 的高16位，send_slope = idle_slope - 65535
//
// bwNum 不能超过32位，否则 bwNum*0xFFFFFFFF 会超出64位
func CalcCbs(bwNum, bwDenom uint64) (cbs base.CbsParams, err error) {
	if bwDenom == 0 {
		return cbs, base.ErrDivideByZero
	}
	if bwNum > cbsFractionMax {
		return cbs, fmt.Errorf("%w. bw_num=%d", base.ErrOverflow, bwNum)
	}
	if bwNum >= bwDenom {
		return cbs, fmt.Errorf("%w. bw_num=%d, bw_denom=%d", base.ErrInsufficientBandwidth, bwNum, bwDenom)
	}

	fraction := bwNum*cbsFractionMax/bwDenom + cbsRoundingHalf
	if fraction > cbsFractionMax {
		return cbs, fmt.Errorf("%w. bw_num=%d, bw_denom=%d", base.ErrInsufficientBandwidth, bwNum, bwDenom)
	}

	cbs.BandwidthFraction = uint32(fraction)
	cbs.IdleSlope = uint32(fraction >> 16)
	cbs.SendSlope = int32(cbs.IdleSlope) - int32(cbsSlopeMax)
	return cbs, nil
}

// CalcCbsByFrames 每秒发送 framesPerClassInterval 个大小为 avtpPacketSize 的帧
//
// 分子分母都以字节为单位，adjustPercent 为放大系数（百分比）
func CalcCbsByFrames(portRate uint64, avtpPacketSize, framesPerClassInterval, adjustPercent int) (base.CbsParams, error) {
	if avtpPacketSize <= 0 || framesPerClassInterval <= 0 || adjustPercent <= 0 {
		return base.CbsParams{}, base.NewErrInvalidArgument(fmt.Sprintf("size=%d, frames=%d, adjust=%d",
			avtpPacketSize, framesPerClassInterval, adjustPercent))
	}
	bwNum := uint64(avtp.EthernetOverhead+avtpPacketSize) * uint64(framesPerClassInterval) * uint64(adjustPercent)
	bwDenom := portRate / 8 * 100
	return CalcCbs(bwNum, bwDenom)
}

// CalcCbsByBitrate 按payload码率计算，etherSize 为携带 payloadSize 字节payload的帧大小
func CalcCbsByBitrate(portRate uint64, etherSize int, payloadBitrate uint64, payloadSize int) (base.CbsParams, error) {
	if etherSize <= 0 || payloadSize <= 0 || payloadBitrate == 0 {
		return base.CbsParams{}, base.NewErrInvalidArgument(fmt.Sprintf("ether_size=%d, payload_size=%d, bitrate=%d",
			etherSize, payloadSize, payloadBitrate))
	}
	bwNum := payloadBitrate / 1000 * uint64(etherSize+avtp.EthernetOverhead)
	bwDenom := portRate / 1000 * uint64(payloadSize)
	return CalcCbs(bwNum, bwDenom)
}
