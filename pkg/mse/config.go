// Copyright 2026, Chef.  All rights reserved.
// https://github.com/q191201771/lalmse
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mse

import (
	"encoding/json"
	"os"

	"github.com/q191201771/lalmse/pkg/base"
	"github.com/q191201771/naza/pkg/nazaerrors"
	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

type Config struct {
	Log nazalog.Option `json:"log"`

	InstanceMax         int  `json:"instance_max"`
	ClassIntervalFrames int  `json:"class_interval_frames"`
	CbsAdjustPercent    int  `json:"cbs_adjust_percent"`
	H264SingleNal       bool `json:"h264_single_nal"`
}

func (c *Config) PacketizerOption() base.PacketizerOption {
	return base.PacketizerOption{
		ClassIntervalFrames: c.ClassIntervalFrames,
		CbsAdjustPercent:    c.CbsAdjustPercent,
		H264SingleNal:       c.H264SingleNal,
	}
}

func LoadConf(confFile string) (*Config, error) {
	rawContent, err := os.ReadFile(confFile)
	if err != nil {
		return nil, nazaerrors.Wrap(err)
	}
	return ParseConf(rawContent)
}

// ParseConf 解析json格式的配置，不存在的配置项使用默认值
func ParseConf(rawContent []byte) (*Config, error) {
	var config Config
	if err := json.Unmarshal(rawContent, &config); err != nil {
		return nil, nazaerrors.Wrap(err)
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, nazaerrors.Wrap(err)
	}
	if !j.Exist("log.level") {
		config.Log.Level = nazalog.LevelInfo
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = true
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.Log.AssertBehavior = nazalog.AssertError
	}
	if !j.Exist("instance_max") {
		config.InstanceMax = base.DefaultInstanceMax
	}
	if !j.Exist("class_interval_frames") {
		config.ClassIntervalFrames = base.DefaultClassIntervalFrames
	}
	if !j.Exist("cbs_adjust_percent") {
		config.CbsAdjustPercent = base.DefaultCbsAdjustPercent
	}
	if !j.Exist("h264_single_nal") {
		config.H264SingleNal = true
	}

	if config.InstanceMax <= 0 {
		return nil, base.NewErrInvalidConfig("instance_max", config.InstanceMax)
	}
	if config.ClassIntervalFrames <= 0 {
		return nil, base.NewErrInvalidConfig("class_interval_frames", config.ClassIntervalFrames)
	}
	if config.CbsAdjustPercent <= 0 {
		return nil, base.NewErrInvalidConfig("cbs_adjust_percent", config.CbsAdjustPercent)
	}
	return &config, nil
}

// Init 使用配置中的日志选项初始化全局日志
func Init(conf *Config) error {
	return nazalog.Init(func(option *nazalog.Option) {
		*option = conf.Log
	})
}
