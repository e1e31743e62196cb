// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

// Status packetize/depacketize 单次调用的结果
type Status int

const (
	// StatusContinue 输入还有剩余，或帧尚未合成完毕
	StatusContinue Status = iota

	// StatusComplete 输入buffer已经全部消费，或输出buffer已经合成完毕
	StatusComplete

	// StatusNotEnoughData 输入不足一个包，数据已经存入piece buffer，本次没有产生包。
	// 需要继续喂数据，或者使用nil buffer调用一次，将剩余数据作为短包发送出去
	StatusNotEnoughData

	// StatusMayComplete 格式本身无法判断帧是否结束，由调用方决定
	StatusMayComplete

	// StatusSkip 根据时间戳计算出的offset超出了输出buffer的范围
	StatusSkip

	// StatusDiscard 时间戳不可用，丢弃该包
	StatusDiscard
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "Continue"
	case StatusComplete:
		return "Complete"
	case StatusNotEnoughData:
		return "NotEnoughData"
	case StatusMayComplete:
		return "MayComplete"
	case StatusSkip:
		return "Skip"
	case StatusDiscard:
		return "Discard"
	}
	return "Unknown"
}
