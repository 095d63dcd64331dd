package ultralytics

import (
	"strconv"

	"github.com/ekisa-team/toolvision/internal/backend"
)

// buildTrainArgs builds `yolo <task> train key=value ...` arguments.
func buildTrainArgs(task string, req *backend.TrainRequest) []string {
	args := []string{task, "train",
		kv("data", req.Data),
		kv("model", req.Model),
	}

	if req.Device != "" {
		args = append(args, kv("device", req.Device))
	}

	args = append(args,
		kv("epochs", itoa(req.Epochs)),
		kv("patience", itoa(req.Patience)),
		kv("batch", itoa(req.Batch)),
		kv("imgsz", itoa(req.ImgSize)),
	)

	if req.Project != "" {
		args = append(args, kv("project", req.Project))
	}
	if req.Name != "" {
		args = append(args, kv("name", req.Name))
	}
	if req.Resume {
		args = append(args, kv("resume", "True"))
	}

	a := req.Augmentation
	args = append(args,
		kv("mosaic", ftoa(a.Mosaic)),
		kv("close_mosaic", itoa(a.CloseMosaic)),
		kv("perspective", ftoa(a.Perspective)),
		kv("degrees", ftoa(a.Degrees)),
		kv("scale", ftoa(a.Scale)),
		kv("translate", ftoa(a.Translate)),
		kv("shear", ftoa(a.Shear)),
		kv("hsv_h", ftoa(a.HSVH)),
		kv("hsv_s", ftoa(a.HSVS)),
		kv("hsv_v", ftoa(a.HSVV)),
		kv("fliplr", ftoa(a.FlipLR)),
		kv("mixup", ftoa(a.MixUp)),
		kv("copy_paste", ftoa(a.CopyPaste)),
	)

	return args
}

// buildPredictArgs builds `yolo <task> predict key=value ...` arguments.
// Label files with confidences are always written; they are how detections are read back.
func buildPredictArgs(task string, req *backend.PredictRequest) []string {
	args := []string{task, "predict",
		kv("model", req.Model),
		kv("source", req.Source),
		kv("conf", ftoa(req.Conf)),
		kv("iou", ftoa(req.IoU)),
		kv("imgsz", itoa(req.ImgSize)),
		kv("save", pybool(req.Save)),
		kv("show", pybool(req.Show)),
		kv("save_txt", "True"),
		kv("save_conf", "True"),
	}

	if req.Device != "" {
		args = append(args, kv("device", req.Device))
	}
	if req.Project != "" {
		args = append(args, kv("project", req.Project))
	}
	if req.Name != "" {
		args = append(args, kv("name", req.Name))
	}

	return args
}

func kv(key, value string) string {
	return key + "=" + value
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pybool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
