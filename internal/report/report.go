package report

import (
	"fmt"
	"io"
	"time"

	"pairloop/internal/adjuster"
	"pairloop/internal/outcome"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// 中文说明：
// 自改进过程可视化：偏置随调整的漂移曲线 + 每笔平仓的价差收益柱状，
// 输出单页 HTML，直接挂在 HTTP /report 上。

const (
	colorBackground = "#060c1b"
	colorBias       = "#3b82f6"
	colorNeutral    = "#9ca3af"
	colorSpread     = "#34d399"

	chartWidth  = "1100px"
	chartHeight = "420px"
)

// Input 汇集渲染报表所需的只读数据。
type Input struct {
	PairName    string
	Adjustments []adjuster.Record
	Trades      []outcome.TradeOutcome
}

// Render 把完整报表页写入 w。
func Render(w io.Writer, in Input) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("pairloop report - %s", in.PairName)

	page.AddCharts(biasChart(in.Adjustments))
	page.AddCharts(spreadChart(in.Trades))
	return page.Render(w)
}

// biasChart 画偏置漂移曲线，并叠加 0.5 中性参考线。
func biasChart(records []adjuster.Record) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           chartWidth,
			Height:          chartHeight,
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Directional bias drift"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	labels := make([]string, 0, len(records)+1)
	bias := make([]opts.LineData, 0, len(records)+1)
	neutral := make([]opts.LineData, 0, len(records)+1)

	if len(records) == 0 {
		labels = append(labels, "start")
		bias = append(bias, opts.LineData{Value: adjuster.NeutralBias})
		neutral = append(neutral, opts.LineData{Value: adjuster.NeutralBias})
	} else {
		labels = append(labels, records[0].Timestamp.Format("01-02 15:04"))
		bias = append(bias, opts.LineData{Value: records[0].OldBias})
		neutral = append(neutral, opts.LineData{Value: adjuster.NeutralBias})
		for _, r := range records {
			labels = append(labels, r.Timestamp.Format("01-02 15:04"))
			bias = append(bias, opts.LineData{Value: r.NewBias})
			neutral = append(neutral, opts.LineData{Value: adjuster.NeutralBias})
		}
	}

	line.SetXAxis(labels).
		AddSeries("bias", bias, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBias, Width: 2})).
		AddSeries("neutral", neutral, charts.WithLineStyleOpts(opts.LineStyle{Color: colorNeutral, Type: "dashed"}))
	return line
}

// spreadChart 画每笔已平仓交易的价差收益。
func spreadChart(trades []outcome.TradeOutcome) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           chartWidth,
			Height:          chartHeight,
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Spread return per closed trade (%)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, 0, len(trades))
	values := make([]opts.BarData, 0, len(trades))
	for _, tr := range trades {
		if tr.Status != outcome.StatusClosed {
			continue
		}
		when := tr.OpenTime
		if tr.CloseTime != nil {
			when = *tr.CloseTime
		}
		labels = append(labels, fmt.Sprintf("#%d %s", tr.ID, when.Format("01-02")))
		values = append(values, opts.BarData{
			Name:  fmt.Sprintf("long %s / short %s", tr.LongSymbol, tr.ShortSymbol),
			Value: tr.SpreadReturn,
		})
	}
	if len(labels) == 0 {
		labels = append(labels, time.Now().Format("01-02"))
		values = append(values, opts.BarData{Value: 0})
	}

	bar.SetXAxis(labels).
		AddSeries("spread return", values, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorSpread}))
	return bar
}
