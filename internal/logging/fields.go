package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// StoreFields 提供 store 名称/驱动/前缀字段，供后端构造与驱动日志复用。
func StoreFields(name, driver, prefix string) logrus.Fields {
	return logrus.Fields{
		"store":  name,
		"driver": driver,
		"prefix": prefix,
	}
}

// RequestFields 提供诊断端请求的方法/路径/状态字段。
func RequestFields(method, path string, status int, requestID string) logrus.Fields {
	return logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     status,
		"request_id": requestID,
	}
}
