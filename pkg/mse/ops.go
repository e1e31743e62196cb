// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mse

import (
	"fmt"

	"github.com/q191201771/lalmse/pkg/aaf"
	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/lalmse/pkg/crf"
	"github.com/q191201771/lalmse/pkg/cvf"
	"github.com/q191201771/lalmse/pkg/iec61883"
)

type PacketizerId int

const (
	PacketizerIdCvfH264 PacketizerId = iota
	PacketizerIdCvfH264D13
	PacketizerIdCvfMjpeg
	PacketizerIdIec61883_4
	PacketizerIdIec61883_6
	PacketizerIdAafPcm
	PacketizerIdCrfTimestamp

	PacketizerIdMax
)

func (id PacketizerId) String() string {
	switch id {
	case PacketizerIdCvfH264:
		return "CVF_H264"
	case PacketizerIdCvfH264D13:
		return "CVF_H264_D13"
	case PacketizerIdCvfMjpeg:
		return "CVF_MJPEG"
	case PacketizerIdIec61883_4:
		return "IEC61883_4"
	case PacketizerIdIec61883_6:
		return "IEC61883_6"
	case PacketizerIdAafPcm:
		return "AAF_PCM"
	case PacketizerIdCrfTimestamp:
		return "CRF_TIMESTAMP"
	}
	return fmt.Sprintf("PacketizerId(%d)", int(id))
}

type MediaType int

const (
	MediaTypeAudio MediaType = iota
	MediaTypeVideo
	MediaTypeMpeg2Ts
	MediaTypeCrf
)

// Ops 一种格式的类型和实例构造函数
type Ops struct {
	Type MediaType
	New  func(option base.PacketizerOption) base.IPacketizer
}

// MJPEG只有头模板，没有对应的packetizer
var opsTable = [PacketizerIdMax]*Ops{
	PacketizerIdCvfH264: {
		Type: MediaTypeVideo,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return cvf.NewH264Packetizer(option)
		},
	},
	PacketizerIdCvfH264D13: {
		Type: MediaTypeVideo,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return cvf.NewH264D13Packetizer(option)
		},
	},
	PacketizerIdIec61883_4: {
		Type: MediaTypeMpeg2Ts,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return iec61883.NewMpegTsPacketizer(option)
		},
	},
	PacketizerIdIec61883_6: {
		Type: MediaTypeAudio,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return iec61883.NewAm824Packetizer(option)
		},
	},
	PacketizerIdAafPcm: {
		Type: MediaTypeAudio,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return aaf.NewPacketizer(option)
		},
	},
	PacketizerIdCrfTimestamp: {
		Type: MediaTypeCrf,
		New: func(option base.PacketizerOption) base.IPacketizer {
			return crf.NewPacketizer(option)
		},
	},
}

func GetOps(id PacketizerId) (*Ops, error) {
	if id < 0 || id >= PacketizerIdMax {
		return nil, base.NewErrInvalidArgument(fmt.Sprintf("packetizer id out of range. id=%d", int(id)))
	}
	ops := opsTable[id]
	if ops == nil {
		return nil, fmt.Errorf("%w. packetizer not available. id=%s", base.ErrPermissionDenied, id)
	}
	return ops, nil
}

func GetType(id PacketizerId) (MediaType, error) {
	ops, err := GetOps(id)
	if err != nil {
		return 0, err
	}
	return ops.Type, nil
}
