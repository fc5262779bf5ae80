package catalog

import "fmt"

// Data cache type codes shared by the beacon and telemetry log protocols.
const (
	CodeOBC0                   Code = 0x10
	CodeADCS0                  Code = 0x11
	CodeADCS1                  Code = 0x12
	CodeADCS2                  Code = 0x13
	CodeEPS0                   Code = 0x14
	CodeSSP0                   Code = 0x15
	CodeSSP1                   Code = 0x16
	CodeSSP2                   Code = 0x17
	CodeAOCSControlTlm         Code = 0x19
	CodeEPS1                   Code = 0x1A
	CodeEPS2                   Code = 0x1B
	CodeEPS3                   Code = 0x1C
	CodeEPS4                   Code = 0x1D
	CodeEPS5                   Code = 0x1E
	CodeEPS6                   Code = 0x1F
	CodeTaskStats              Code = 0x20
	CodeSSP3                   Code = 0x21
	CodeSensorMagPrimary       Code = 0x22
	CodeSensorMagSecondary     Code = 0x23
	CodeSensorGyro             Code = 0x24
	CodeSensorCoarseSun        Code = 0x25
	CodeESADCSSensorMagPrimary Code = 0x26
	CodeESADCSSensorMagSecond  Code = 0x27
	CodeESADCSSensorGyro       Code = 0x28
	CodeESADCSSensorCSS        Code = 0x29
	CodeESADCSEstimatesBdot    Code = 0x30
	CodeESADCSControlMTQ       Code = 0x31
	CodeConOpsFlags            Code = 0x32
	CodeAOCSControlSysState    Code = 0x33
	CodeADCS3                  Code = 0x34
	CodeADCS4                  Code = 0x35

	// CodeBeaconUnknown marks the end of data in a beacon container.
	CodeBeaconUnknown Code = 0xFF
)

// Task stack monitor slots in onboard order.
var taskNames = []string{
	"TASK_MONITOR_TASK",
	"TASK_MONITOR_EXEH_PERSISTOR",
	"TASK_MONITOR_APP_TASK",
	"TASK_MONITOR_SERVICES",
	"TASK_MONITOR_SD_MANAGER",
	"TASK_INSTRUMENTS",
	"TASK_MONITOR_S_X_BAND",
	"TASK_MONITOR_CUBEADCS",
	"TASK_MONITOR_CUBEADCS_FHANDL",
	"TASK_MONITOR_GNSS",
	"TASK_PAYLOAD_SCHEDULER",
	"TASK_TELEMETRY",
	"TASK_TELEMETRY_FILE_SINK",
	"TASK_MONITOR_SP",
	"TASK_MACDRV_DISPATCHER",
	"TASK_MACTL_DISPATCHER",
	"TASK_FWUPD_HANDLER",
	"TASK_ESSA_SP_HANDLER",
	"TASK_NVM",
	"TASK_DATACACHE",
	"TASK_ADCS_TLM",
	"TASK_CONOPS_PERIODIC_EV",
	"TASK_MONITOR_PAYLOAD_CTRL",
	"TASK_BEACONS",
	"TASK_EPS_CTRL",
	"TASK_EPS_I",
	"TASK_EPS_II",
	"TASK_EPS_M",
	"TASK_SYS_CLOCK",
	"TASK_MONITOR_ES_ADCS",
	"TASK_ACTUATOR_CONTROL_SERVICE",
	"TASK_SDS",
	"TASK_AOCS_CNTRL",
	"TASK_SXBAND_SCHED",
	"TASK_CRYPTO_SRV",
	"TASK_MONITOR_TASKS_NUMBER",
}

// Task slot counts reported by older and newer flight software builds.
const (
	LegacyTasks = 30
	MaxTasks    = 36
)

func sspFields() []Field {
	return []Field{
		U16("sunDataMain"),
		U16("sunDataExt"),
		I16("tempMCU"),
		I16("tempMain"),
		I16("tempExt1"),
		I16("tempExt2"),
	}
}

func adcsStateFields() []Field {
	return []Field{
		Bits("Attitude_Estimation_Mode", 4),
		Bits("Control_Mode", 4),

		Flag("ADCS_Run_Mode"),
		Flag("ASGP4_Mode"),
		Flag("CubeControl_Signal_Enabled"),
		Flag("CubeControl_Motor_Enabled"),
		Bits("CubeSense1_Enabled", 2),
		Bits("CubeSense2_Enabled", 2),

		Flag("CubeWheel1_Enabled"),
		Flag("CubeWheel2_Enabled"),
		Flag("CubeWheel3_Enabled"),
		Flag("CubeStar_Enabled"),
		Flag("GPS_Receiver_Enabled"),
		Flag("GPS_LNA_Power_Enabled"),
		Flag("Motor_Driver_Enabled"),
		Flag("Sun_is_Above_Local_Horizon"),

		Flag("CubeSense1_Communications_Error"),
		Flag("CubeSense2_Communications_Error"),
		Flag("CubeControl_Signal_Communications_Error"),
		Flag("CubeControl_Motor_Communications_Error"),
		Flag("CubeWheel1_Communications_Error"),
		Flag("CubeWheel2_Communications_Error"),
		Flag("CubeWheel3_Communications_Error"),
		Flag("CubeStar_Communications_Error"),

		Flag("Magnetometer_Range_Error"),
		Flag("Cam1_SRAM_Overcurrent_Detected"),
		Flag("Cam1_3V3_Overcurrent_Detected"),
		Flag("Cam1_Sensor_Busy_Error"),
		Flag("Cam1_Sensor_Detection_Error"),
		Flag("Sun_Sensor_Range_Error"),
		Flag("Cam2_SRAM_Overcurrent_Detected"),
		Flag("Cam2_3V3_Overcurrent_Detected"),

		Flag("Cam2_Sensor_Busy_Error"),
		Flag("Cam2_Sensor_Detection_Error"),
		Flag("Nadir_Sensor_Range_Error"),
		Flag("Rate_Sensor_Range_Error"),
		Flag("Wheel_Speed_Range_Error"),
		Flag("Coarse_Sun_Sensor_Error"),
		Flag("StarTracker_Match_Error"),
		Flag("StarTracker_Overcurrent_Detected"),
	}
}

// sharedEntries are the layouts both protocols agree on. Signedness follows
// the newest flight software revision; see DESIGN.md for the fields that
// earlier ground tools decoded differently.
func sharedEntries(tasks int) []Entry {
	return []Entry{
		{Code: CodeOBC0, Name: "OBC_0", Fields: []Field{
			U8("opMode"),
			U32("upTime"),
			U16("totalResetCount"),
			U16("resetReasonBitField"),
			U16("payloadModesStatus"),
		}},
		{Code: CodeADCS0, Name: "ADCS_0", Fields: []Field{
			Array(I16("magFieldVec"), AxisXYZ...),
			Array(I16("coarseSunVec"), AxisXYZ...),
			Array(I16("fineSunVec"), AxisXYZ...),
			Array(I16("nadirVec"), AxisXYZ...),
			Array(I16("angRateVec"), AxisXYZ...),
			Array(I16("wheelSpeedArr"), AxisXYZ...),
		}},
		{Code: CodeADCS1, Name: "ADCS_1", Fields: []Field{
			Array(I16("estQSet"), QuaternionQ13...),
			Array(I16("estAngRateVec"), AxisXYZ...),
		}},
		{Code: CodeADCS2, Name: "ADCS_2", Fields: adcsStateFields()},
		{Code: CodeEPS0, Name: "EPS_0", Fields: []Field{
			I64("battEnergy"),
			I64("battCharge"),
			I64("battChargeCapacity"),
			I64("battPercent"),
			I32("battVoltage"),
			I32("battCurrent"),
			I32("battTemperature"),
		}},
		{Code: CodeSSP0, Name: "SSP_0", Fields: sspFields()},
		{Code: CodeSSP1, Name: "SSP_1", Fields: sspFields()},
		{Code: CodeSSP2, Name: "SSP_2", Fields: sspFields()},
		{Code: CodeAOCSControlTlm, Name: "AOCS_CNTRL_TLM", Fields: []Field{
			U16("adcsErrFlags"),
			I32("estAngRateNorm"),
			Array(I32("estAngRateVec"), AxisXYZ...),
			Array(I32("estAttAngles"), EulerAngles...),
			Array(I16("measWheelSpeed"), AxisXYZ...),
		}},
		{Code: CodeEPS1, Name: "EPS_1", Fields: []Field{
			I32("battCapacity"),
			I32("battVoltage"),
			I32("battCurrent"),
			I32("battTemperature"),
		}},
		{Code: CodeEPS2, Name: "EPS_2", Fields: []Field{
			I16("VOLT_BRDSUP"),
			I16("TEMP_MCU"),
			I16("VIP_INPUT_Voltage"),
			I16("VIP_INPUT_Current"),
			I16("VIP_INPUT_Power"),
			U16("STAT_CH_ON"),
			U16("STAT_CH_OCF"),
			Array(I16(""),
				"VIP_Voltage_VD0", "VIP_Current_VD0",
				"VIP_Voltage_VD4", "VIP_Current_VD4",
				"VIP_Voltage_VD6", "VIP_Current_VD6",
				"VIP_Voltage_VD7", "VIP_Current_VD7",
				"VIP_Voltage_VD8", "VIP_Current_VD8",
				"VIP_Voltage_VD9", "VIP_Current_VD9",
				"VIP_Voltage_VD10", "VIP_Current_VD10",
				"VIP_Voltage_VD11", "VIP_Current_VD11",
			),
		}},
		{Code: CodeEPS3, Name: "EPS_3", Fields: []Field{
			I16("VOLT_BRDSUP"),
			I16("TEMP_MCU"),
			I16("VIP_INPUT_Voltage"),
			I16("VIP_INPUT_Current"),
			I16("VIP_INPUT_Power"),
			U16("STAT_BU"),
			Array(I16("VIP_BP_INPUT_Voltage"), Indexed(2)...),
			Array(I16("VIP_BP_INPUT_Current"), Indexed(2)...),
			Array(I16("VIP_BP_INPUT_Power"), Indexed(2)...),
			Array(I16("STAT_BP"), Indexed(2)...),
			Array(I16("VOLT_CELL1"), Indexed(2)...),
			Array(I16("VOLT_CELL2"), Indexed(2)...),
			Array(I16("VOLT_CELL3"), Indexed(2)...),
			Array(I16("VOLT_CELL4"), Indexed(2)...),
			Array(I16("BAT_TEMP1"), Indexed(2)...),
			Array(I16("BAT_TEMP2"), Indexed(2)...),
			Array(I16("BAT_TEMP3"), Indexed(2)...),
		}},
		{Code: CodeEPS4, Name: "EPS_4", Fields: []Field{
			I16("VOLT_BRDSUP"),
			I16("TEMP_MCU"),
			I16("VIP_OUTPUT_Voltage"),
			I16("VIP_OUTPUT_Current"),
			I16("VIP_OUTPUT_Power"),
			Array(I16("VIP_CC_OUTPUT_Voltage"), Indexed(4)...),
			Array(I16("VIP_CC_OUTPUT_Current"), Indexed(4)...),
			Array(I16("VIP_CC_OUTPUT_Power"), Indexed(4)...),
			Array(I16("CCx_VOLT_IN_MPPT"), Indexed(4)...),
			Array(I16("CCx_CURR_IN_MPPT"), Indexed(4)...),
			Array(I16("CCx_VOLT_OU_MPPT"), Indexed(4)...),
			Array(I16("CCx_CURR_OU_MPPT"), Indexed(4)...),
		}},
		{Code: CodeEPS5, Name: "EPS_5", Fields: []Field{
			U8("MODE"),
			U8("RESET_CAUSE"),
			U32("UPTIME"),
			U16("ERROR"),
			U16("RC_CNT_PWRON"),
			U16("RC_CNT_WDG"),
			U16("RC_CNT_CMD"),
			U16("RC_CNT_MCU"),
			U16("RC_CNT_EMLOPO"),
			U32("UNIX_TIME"),
			U32("UNIX_YEAR"),
			U32("UNIX_MONTH"),
			U32("UNIX_DAY"),
			U32("UNIX_HOUR"),
			U32("UNIX_MINUTE"),
			U32("UNIX_SECOND"),
		}},
		{Code: CodeEPS6, Name: "EPS_6", Fields: []Field{
			U16("STAT_CH_ON"),
			U16("STAT_CH_OCF"),
			Array(U16("OCF_CNT"), "CH00", "CH04", "CH06", "CH07", "CH08", "CH09", "CH10", "CH11"),
		}},
		{Code: CodeTaskStats, Name: "TaskStats", Fields: []Field{
			Array(I16(""), taskNames[:tasks]...),
		}},
		{Code: CodeSSP3, Name: "SSP_3", Fields: sspFields()},
		{Code: CodeSensorMagPrimary, Name: "SENSOR_MAG_PRIMARY", Fields: []Field{
			Array(I32("MAG"), AxisXYZ...),
		}},
		{Code: CodeSensorMagSecondary, Name: "SENSOR_MAG_SECONDARY", Fields: []Field{
			Array(I32("MAG"), AxisXYZ...),
		}},
		{Code: CodeSensorGyro, Name: "SENSOR_GYRO", Fields: []Field{
			Array(I32("GYRO"), Indexed(3)...),
		}},
		{Code: CodeSensorCoarseSun, Name: "SENSOR_COARSE_SUN", Fields: []Field{
			Array(I32("CSS_PANEL"), Indexed(6)...),
		}},
		{Code: CodeESADCSSensorMagPrimary, Name: "ES_ADCS_SENSOR_MAG_PRIMARY", Fields: esMagFields()},
		{Code: CodeESADCSSensorMagSecond, Name: "ES_ADCS_SENSOR_MAG_SECONDARY", Fields: esMagFields()},
		{Code: CodeESADCSSensorGyro, Name: "ES_ADCS_SENSOR_GYRO", Fields: []Field{
			Array(I32("GYRO"), AxisXYZ...),
		}},
		{Code: CodeESADCSSensorCSS, Name: "ES_ADCS_SENSOR_CSS", Fields: []Field{
			Array(I32("CSS_AXIS"), "X_PLUS", "Y_PLUS", "Z_PLUS", "X_MINUS", "Y_MINUS", "Z_MINUS"),
		}},
		{Code: CodeESADCSEstimatesBdot, Name: "ES_ADCS_ESTIMATES_BDOT", Fields: []Field{
			Array(I32("MAG_FIELD_DERIV"), AxisXYZ...),
		}},
		{Code: CodeESADCSControlMTQ, Name: "ES_ADCS_CONTROL_VALUES_MTQ", Fields: []Field{
			Array(I8("MAGTORQUE_VALUE"), AxisXYZ...),
		}},
		{Code: CodeConOpsFlags, Name: "ConOpsFlags", Fields: []Field{
			U8("PAY_ERR"),
			U8("ADCS_ERR"),
			U8("DETUMB_COMPLETED"),
		}},
		{Code: CodeAOCSControlSysState, Name: "AOCS_CNTRL_SYS_STATE", Fields: []Field{
			U8("adcsSysState"),
			U8("adcsSysStateStatus"),
		}},
		{Code: CodeADCS3, Name: "ADCS_3", Fields: []Field{
			Array(I16(""), "est_roll_angle", "est_pitch_angle", "est_yaw_angle"),
			Array(I16("IGRF_MagField"), AxisXYZ...),
			Array(I16("Modelled_Sun_V"), AxisXYZ...),
			Array(I16("EstGyroBias"), AxisXYZ...),
			Array(I16("Innovation_Vec"), AxisXYZ...),
			Array(I16("Err"), QuaternionQ13...),
			Array(I16("RMS"), QuaternionQ13...),
			Array(I16(""), "X_AngRate_Cov", "Y_AngRate_Cov", "Z_AngRate_Cov"),
			Array(I16(""), "X_Rate", "Y_Rate", "Z_Rate"),
			Array(I16(""), "Q0", "Q1", "Q2"),
		}},
		{Code: CodeADCS4, Name: "ADCS_4", Fields: []Field{
			Array(U16(""),
				"Cubesense1_3V3_Current", "Cubesense1_SRAM_Current",
				"Cubesense2_3V3_Current", "Cubesense2_SRAM_Current",
				"CubeControl_3V3_Current", "CubeControl_5V_Current", "CubeControl_Vbat_Current",
				"Wheel_1_Current", "Wheel_2_Current", "Wheel_3_Current",
				"CubeStar_Current", "MTQ_Current",
			),
			Array(I16(""),
				"CubeStar_MCU_Temp", "ADCS_MCU_Temp", "MTM_Temp", "RMTM_Temp",
				"X_Rate_Sensor_Temp", "Y_Rate_Sensor_Temp", "Z_Rate_Sensor_Temp",
			),
		}},
	}
}

func esMagFields() []Field {
	return []Field{
		Array(I32("MAG"), "X_CURRENT", "Y_CURRENT", "Z_CURRENT", "X_PREVIOUS", "Y_PREVIOUS", "Z_PREVIOUS"),
	}
}

// Beacon returns the catalog for beacon sub-messages. TaskStats carries every
// task slot; shorter payloads decode the slots present.
func Beacon() *Catalog {
	return MustNew("beacon", sharedEntries(MaxTasks))
}

// TelemetryOptions selects firmware-dependent layouts of the telemetry log.
type TelemetryOptions struct {
	TaskCount int
}

func DefaultTelemetryOptions() TelemetryOptions {
	return TelemetryOptions{TaskCount: LegacyTasks}
}

// Telemetry returns the catalog for flash telemetry log records.
func Telemetry(opts TelemetryOptions) (*Catalog, error) {
	if opts.TaskCount == 0 {
		opts.TaskCount = LegacyTasks
	}
	if opts.TaskCount != LegacyTasks && opts.TaskCount != MaxTasks {
		return nil, fmt.Errorf("catalog: task count must be %d or %d, got %d", LegacyTasks, MaxTasks, opts.TaskCount)
	}
	return New("telemetry", sharedEntries(opts.TaskCount))
}
