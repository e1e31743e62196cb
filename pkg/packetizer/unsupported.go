// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package packetizer

import "github.com/q191201771/lalmse/pkg/base"

// Unsupported 嵌入到具体格式的packetizer中，格式不支持的接口返回 base.ErrNotSupported
type Unsupported struct{}

func (Unsupported) SetAudioConfig(cfg *base.AudioConfig) error {
	return base.ErrNotSupported
}

func (Unsupported) SetVideoConfig(cfg *base.VideoConfig) error {
	return base.ErrNotSupported
}

func (Unsupported) SetMpeg2TsConfig(cfg *base.Mpeg2TsConfig) error {
	return base.ErrNotSupported
}

func (Unsupported) GetAudioInfo() (base.AudioInfo, error) {
	return base.AudioInfo{}, base.ErrNotSupported
}
